// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for backends that play a Timeline
package output

// Output plays a Timeline on an audio device
type Output interface {
	// Open starts pulling audio from the timeline
	Open(timeline *Timeline) error

	// Close releases output resources
	Close() error
}

// New returns the backend for name ("oto" or "malgo"). A non-empty device
// name always selects malgo since oto plays on the system default device.
func New(name, device string) Output {
	if name == "malgo" || device != "" {
		return NewMalgo(device)
	}
	return NewOto()
}
