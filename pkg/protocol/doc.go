// ABOUTME: Live translation wire protocol package
// ABOUTME: Defines JSON envelopes and the WebSocket client
// Package protocol implements the wire side of a realtime speech translation
// session.
//
// The client opens one WebSocket, sends a setup envelope, streams captured
// audio as base64 PCM16 media chunks and receives synthesized audio as inline
// data parts of the model's turn. A close with code 1011 means the service
// quota was exceeded.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{Endpoint: protocol.DefaultEndpoint, APIKey: key})
//	err := client.Dial(ctx)
//	err = client.SendSetup(protocol.NewSetup(model, voice, "English"))
//	for part := range client.Audio { ... }
package protocol
