// ABOUTME: Audio capture package
// ABOUTME: Fixed-window buffering between the audio thread and the network
// Package capture turns a stream of small captured blocks into fixed-size
// windows ready for transmission.
//
// The Buffer runs on the real-time audio callback: it only copies samples
// and allocates once per full window. ChunkProcessor hands each window to the
// control side over a channel without blocking. Device drives a processor from
// a malgo capture callback; Pump does the same for files and test tones.
//
// Example:
//
//	chunks := make(chan []float32, 4)
//	proc := capture.NewChunkProcessor(80000, chunks)
//	dev, err := capture.OpenDevice("", 16000, proc)
//	err = dev.Start()
package capture
