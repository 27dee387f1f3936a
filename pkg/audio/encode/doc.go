// ABOUTME: Audio encoder package for the outgoing wire format
// ABOUTME: Converts float samples to PCM16 and base64 payloads
// Package encode converts captured float samples into the wire format
// expected by the translation service: base64 of mono PCM16 little-endian.
//
// Example:
//
//	data := encode.Base64PCM16(chunk)
package encode
