package player

import (
	"time"

	"github.com/desertthunder/castro/internal/models"
)

// chain is one live decode/output pipeline for a single episode.
//
// Implementations are not required to be goroutine safe; the Player
// serializes all access.
type chain interface {
	// play starts audible output for the episode at the given offset and
	// volume. onDone fires once when the stream drains naturally (not on
	// teardown).
	play(episode *models.Episode, startOffset time.Duration, volume float64, onDone func()) error

	pause()
	resume()

	// seek repositions playback. The caller clamps; implementations may
	// assume 0 <= d <= duration().
	seek(d time.Duration) error

	position() time.Duration
	duration() time.Duration

	// setVolume applies a linear gain in [0.0, 1.0] to the live output.
	setVolume(v float64)

	// close releases the decode and output resources. Idempotent.
	close()
}

// chainFactory builds a fresh chain. Swapped for a fake in tests.
type chainFactory func() chain
