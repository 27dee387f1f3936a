// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams a Timeline through a persistent oto player
package output

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// Oto output implementation using oto library
type Oto struct {
	otoCtx *oto.Context
	player *oto.Player
	ready  bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Open initializes oto for the timeline format and starts playback.
// oto allows one context per process, so Open is expected once per run.
func (o *Oto) Open(timeline *Timeline) error {
	if o.ready {
		log.Debug().Msg("Audio output already initialized, reusing context")
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   timeline.SampleRate(),
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx

	// Persistent player pulls from the timeline for the life of the output
	o.player = o.otoCtx.NewPlayer(timeline)
	o.player.Play()
	o.ready = true

	log.Info().Int("sample_rate", timeline.SampleRate()).Str("backend", "oto").Msg("Audio output initialized")

	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Warn().Err(err).Msg("oto player close error")
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Warn().Err(err).Msg("oto suspend error")
		}
	}
	o.ready = false
	return nil
}
