//go:build (linux && cgo) || windows || darwin

package player

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/desertthunder/castro/internal/models"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// outputSampleRate is the fixed speaker sample rate; sources are resampled
// to it.
const outputSampleRate = beep.SampleRate(44100)

var speakerOnce sync.Once
var speakerErr error

// initSpeaker initializes the shared output device exactly once per process.
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputSampleRate, outputSampleRate.N(time.Second/10))
	})
	return speakerErr
}

// beepChain is the production decode/output chain built on beep.
type beepChain struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	closed   bool
}

// newPlatformChain constructs an empty beep chain.
func newPlatformChain() chain {
	return &beepChain{}
}

func (c *beepChain) play(episode *models.Episode, startOffset time.Duration, volume float64, onDone func()) error {
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	source, err := openMedia(episode)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(source)
	if err != nil {
		source.Close()
		return fmt.Errorf("mp3 decode: %w", err)
	}

	c.streamer = streamer
	c.format = format

	if startOffset > 0 {
		// Network sources may not be seekable; start from the top then.
		_ = streamer.Seek(format.SampleRate.N(startOffset))
	}

	resampled := beep.Resample(4, format.SampleRate, outputSampleRate, streamer)
	c.ctrl = &beep.Ctrl{Streamer: resampled}
	c.volume = &effects.Volume{Streamer: c.ctrl, Base: 2}
	c.applyVolume(volume)

	speaker.Play(beep.Seq(c.volume, beep.Callback(func() {
		// Run off the speaker goroutine so the callback may grab the
		// player lock and start the next chain.
		go onDone()
	})))

	return nil
}

func (c *beepChain) pause() {
	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Paused = true
	speaker.Unlock()
}

func (c *beepChain) resume() {
	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Paused = false
	speaker.Unlock()
}

func (c *beepChain) seek(d time.Duration) error {
	if c.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	return c.streamer.Seek(c.format.SampleRate.N(d))
}

func (c *beepChain) position() time.Duration {
	if c.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := c.streamer.Position()
	speaker.Unlock()
	return c.format.SampleRate.D(pos)
}

func (c *beepChain) duration() time.Duration {
	if c.streamer == nil {
		return 0
	}
	return c.format.SampleRate.D(c.streamer.Len())
}

func (c *beepChain) setVolume(v float64) {
	if c.volume == nil {
		return
	}
	speaker.Lock()
	c.applyVolume(v)
	speaker.Unlock()
}

// applyVolume maps a linear volume in [0,1] onto beep's exponential scale.
func (c *beepChain) applyVolume(v float64) {
	if v <= 0 {
		c.volume.Silent = true
		return
	}
	c.volume.Silent = false
	c.volume.Volume = math.Log2(v)
}

func (c *beepChain) close() {
	if c.closed {
		return
	}
	c.closed = true

	if c.ctrl != nil {
		speaker.Lock()
		c.ctrl.Paused = true
		c.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if c.streamer != nil {
		c.streamer.Close()
		c.streamer = nil
	}
	c.ctrl = nil
	c.volume = nil
}

// openMedia opens the local file when the episode is downloaded, otherwise
// streams straight from the network.
func openMedia(episode *models.Episode) (interface {
	Read([]byte) (int, error)
	Close() error
}, error) {
	if episode.ContentLocalPath != "" {
		f, err := os.Open(episode.ContentLocalPath)
		if err != nil {
			return nil, fmt.Errorf("open media file: %w", err)
		}
		return f, nil
	}

	resp, err := http.Get(episode.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
