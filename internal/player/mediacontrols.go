package player

import "sync"

// Transport is the subset of player commands exposed to an OS media-control
// surface (media keys, lock-screen controls).
type Transport interface {
	Play()
	Pause()
	SkipForwards() error
	SkipBackwards() error
}

// ControlSurface is an opaque platform integration point. Implementations
// bind OS media keys to the given transport. On platforms without such a
// surface the player is simply never handed one.
type ControlSurface interface {
	// Bind attaches the transport, replacing any previous binding.
	Bind(t Transport) error

	// Release detaches the current binding.
	Release() error
}

var controlsMu sync.Mutex

// SetUpMediaControls registers the player's transport with an OS-level
// media-control surface.
//
// Idempotent: a repeated call releases the previous registration before
// binding the new surface, so the process never holds two. A nil surface is
// a no-op, which is also the path taken on platforms with no such surface.
func (p *Player) SetUpMediaControls(surface ControlSurface) error {
	if surface == nil {
		return nil
	}

	controlsMu.Lock()
	defer controlsMu.Unlock()

	p.mu.Lock()
	previous := p.controls
	p.mu.Unlock()

	if previous != nil {
		if err := previous.Release(); err != nil {
			p.logger.Warn("failed to release previous media controls", "err", err)
		}
	}

	if err := surface.Bind(p); err != nil {
		return err
	}

	p.mu.Lock()
	p.controls = surface
	p.mu.Unlock()

	return nil
}
