// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, stream constants and sample conversion functions
// Package audio provides fundamental audio types shared by capture and playback.
//
// Samples are normalized float32 values in [-1, 1]. The wire format in both
// directions is mono 16-bit little-endian PCM:
//   - CaptureFormat: 16kHz, sent to the translation service
//   - PlaybackFormat: 24kHz, returned by the translation service
//
// Example:
//
//	capacity := audio.Capacity(audio.CaptureSampleRate, audio.DefaultWindow) // 80000
//	v := audio.SampleToInt16(0.5)
package audio
