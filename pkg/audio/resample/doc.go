// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts mono audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling of streamed mono chunks.
//
// Example:
//
//	r := resample.New(44100, 16000)
//	out := r.Resample(input)
package resample
