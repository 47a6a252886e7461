//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"time"

	"github.com/desertthunder/castro/internal/models"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for the native sound libraries on linux.
const AudioAvailable = false

// stubChain is a silent chain for builds without audio support. State
// transitions still work; nothing is audible.
type stubChain struct{}

func newPlatformChain() chain {
	return &stubChain{}
}

func (c *stubChain) play(episode *models.Episode, startOffset time.Duration, volume float64, onDone func()) error {
	return nil
}

func (c *stubChain) pause()  {}
func (c *stubChain) resume() {}

func (c *stubChain) seek(d time.Duration) error { return nil }

func (c *stubChain) position() time.Duration { return 0 }
func (c *stubChain) duration() time.Duration { return 0 }

func (c *stubChain) setVolume(v float64) {}

func (c *stubChain) close() {}
