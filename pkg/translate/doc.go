// ABOUTME: Translation session package
// ABOUTME: Joins capture, the wire client and playback under one state machine
// Package translate runs realtime speech translation sessions.
//
// A Session moves through Idle, Connecting and Online. Open starts the
// capture input and dials the service; the session goes Online only after the
// socket has stayed open for the grace period. Captured chunks are sent only
// while Online. Received audio is scheduled back to back on the playback
// clock.
//
// Every end of a connection, whether requested by Close, by the remote or by a
// failure, stops capture and closes the socket. Failures leave the session in
// Error with Err set; the next Open starts over. There is no automatic
// reconnect.
//
// Progress is reported as typed values on Events: StateEvent, StatusEvent,
// AudioSentEvent, AudioReceivedEvent and TurnEvent.
package translate
