// ABOUTME: Audio decoder package for incoming and file audio
// ABOUTME: Provides PCM16 decoding and MP3/FLAC file streams
// Package decode turns encoded audio into normalized mono float samples.
//
// PCM16 handles the translation service's inline audio payloads. MP3 and
// FLAC streams let a file stand in for the microphone.
//
// Example:
//
//	samples, err := decode.Base64PCM16(part.InlineData.Data)
package decode
