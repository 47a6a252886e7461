package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/shared"
)

// SkipInterval is the fixed relative-seek distance for skip commands.
const SkipInterval = 30 * time.Second

// checkpointInterval is how often playing progress is persisted.
const checkpointInterval = 5 * time.Second

// State is the transport status of the player.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the player for the read surface.
type Status struct {
	State    State           `json:"state"`
	Episode  *models.Episode `json:"episode,omitempty"`
	Position time.Duration   `json:"position"`
	Duration time.Duration   `json:"duration"`
	Volume   float64         `json:"volume"`
}

// ProgressSink receives playback progress checkpoints.
type ProgressSink interface {
	UpsertProgress(episodeID, listenedSeconds int64, completed bool) error
}

// Player is the process-wide playback state machine. Share one instance;
// it serializes internal mutation.
type Player struct {
	mu         sync.Mutex
	state      State
	episode    *models.Episode
	chain      chain
	volume     float64
	generation uint64
	stopTick   chan struct{}

	newChain chainFactory
	progress ProgressSink
	logger   *log.Logger

	controls ControlSurface
}

// Option configures a Player.
type Option func(*Player)

// WithChainFactory overrides how decode/output chains are constructed.
func WithChainFactory(f chainFactory) Option {
	return func(p *Player) { p.newChain = f }
}

// New creates a stopped player at the given initial volume.
func New(progress ProgressSink, volume float64, logger *log.Logger, opts ...Option) *Player {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	p := &Player{
		state:    StateStopped,
		volume:   clampVolume(volume),
		newChain: newPlatformChain,
		progress: progress,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlayEpisode stops any current playback and starts the episode at the given
// offset. The offset is clamped to the episode duration when known.
func (p *Player) PlayEpisode(episode *models.Episode, startOffset time.Duration) error {
	if episode == nil {
		return shared.ErrNoEpisodeLoaded
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Full teardown first: never two live chains.
	p.teardownLocked(false)

	if episode.DurationSeconds > 0 {
		max := time.Duration(episode.DurationSeconds) * time.Second
		if startOffset > max {
			startOffset = max
		}
	}
	if startOffset < 0 {
		startOffset = 0
	}

	p.generation++
	generation := p.generation

	c := p.newChain()
	err := c.play(episode, startOffset, p.volume, func() { p.onChainDone(generation) })
	if err != nil {
		c.close()
		return fmt.Errorf("%w: %v", shared.ErrDecodeInit, err)
	}

	p.chain = c
	p.episode = episode
	p.state = StatePlaying
	p.startCheckpointsLocked(generation)

	p.logger.Debug("playback started", "episode", episode.ID, "offset", startOffset)
	return nil
}

// Play resumes paused playback. No-op from Stopped or Playing.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused || p.chain == nil {
		return
	}
	p.chain.resume()
	p.state = StatePlaying
}

// Pause pauses playback and checkpoints progress. No-op unless Playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying || p.chain == nil {
		return
	}
	p.chain.pause()
	p.state = StatePaused
	p.checkpointLocked(false)
}

// SeekTo repositions playback, clamped to [0, duration]. Valid while
// Playing or Paused; returns ErrNoEpisodeLoaded otherwise.
func (p *Player) SeekTo(position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seekLocked(position)
}

// SkipForwards seeks ahead by SkipInterval, clamped to the duration.
func (p *Player) SkipForwards() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chain == nil {
		return shared.ErrNoEpisodeLoaded
	}
	return p.seekLocked(p.chain.position() + SkipInterval)
}

// SkipBackwards seeks back by SkipInterval, clamped to zero.
func (p *Player) SkipBackwards() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chain == nil {
		return shared.ErrNoEpisodeLoaded
	}
	return p.seekLocked(p.chain.position() - SkipInterval)
}

// SetVolume applies a volume in [0.0, 1.0] to the live output chain.
// Out-of-range values are clamped, never rejected. Independent of transport
// state; the value also seeds the next chain.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = clampVolume(v)
	if p.chain != nil {
		p.chain.setVolume(p.volume)
	}
}

// Stop releases the decode/output chain and persists final progress.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked(false)
}

// Status returns a snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{State: p.state, Episode: p.episode, Volume: p.volume}
	if p.chain != nil {
		s.Position = p.chain.position()
		s.Duration = p.chain.duration()
	}
	return s
}

// seekLocked clamps and applies a seek. Callers hold p.mu.
func (p *Player) seekLocked(position time.Duration) error {
	if p.chain == nil || p.state == StateStopped {
		return shared.ErrNoEpisodeLoaded
	}

	if position < 0 {
		position = 0
	}
	if d := p.chain.duration(); d > 0 && position > d {
		position = d
	}

	return p.chain.seek(position)
}

// onChainDone fires when a chain drains naturally. Stale callbacks from a
// replaced chain are ignored via the generation counter.
func (p *Player) onChainDone(generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		return
	}

	p.checkpointLocked(true)
	p.teardownChainLocked()
	p.logger.Debug("playback completed", "episode", p.episode.ID)
}

// teardownLocked stops the current chain (if any), checkpointing progress
// first. Callers hold p.mu.
func (p *Player) teardownLocked(completed bool) {
	if p.chain == nil {
		p.state = StateStopped
		return
	}
	p.checkpointLocked(completed)
	p.teardownChainLocked()
}

func (p *Player) teardownChainLocked() {
	if p.stopTick != nil {
		close(p.stopTick)
		p.stopTick = nil
	}
	p.chain.close()
	p.chain = nil
	p.state = StateStopped
	p.generation++
}

// checkpointLocked persists the current position. Callers hold p.mu.
func (p *Player) checkpointLocked(completed bool) {
	if p.progress == nil || p.episode == nil || p.chain == nil {
		return
	}

	seconds := int64(p.chain.position() / time.Second)
	if err := p.progress.UpsertProgress(p.episode.ID, seconds, completed); err != nil {
		p.logger.Error("failed to checkpoint progress", "episode", p.episode.ID, "err", err)
	}
}

// startCheckpointsLocked launches the periodic progress writer for the
// current playback generation. Callers hold p.mu.
func (p *Player) startCheckpointsLocked(generation uint64) {
	stop := make(chan struct{})
	p.stopTick = stop

	go func() {
		ticker := time.NewTicker(checkpointInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.mu.Lock()
				if p.generation == generation && p.state == StatePlaying {
					p.checkpointLocked(false)
				}
				p.mu.Unlock()
			}
		}
	}()
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
