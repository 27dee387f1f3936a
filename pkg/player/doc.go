// ABOUTME: Playback scheduling package
// ABOUTME: Reassembles irregularly delivered chunks into continuous audio
// Package player schedules decoded audio chunks for continuous playback.
//
// The Scheduler keeps a single cursor marking where queued audio ends. Each
// chunk starts at the cursor, or at the current clock when the cursor has
// fallen behind, and the cursor advances by the chunk's duration.
//
// Example:
//
//	timeline := output.NewTimeline(24000)
//	s := player.NewScheduler(timeline, timeline)
//	start, err := s.Schedule(samples, 24000)
package player
