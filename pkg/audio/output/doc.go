// ABOUTME: Audio output package for playing scheduled audio
// ABOUTME: Provides the playout Timeline and oto/malgo backends
// Package output renders scheduled audio to a device.
//
// Timeline is both the playback clock and the sink used by the player
// scheduler: audio is placed at absolute frames and rendered with silence in
// the gaps. Backends (oto by default, malgo for device selection) pull PCM16
// from the timeline for as long as they are open.
//
// Example:
//
//	timeline := output.NewTimeline(24000)
//	out := output.New("oto", "")
//	err := out.Open(timeline)
package output
