package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/downloads"
	"github.com/desertthunder/castro/internal/player"
	"github.com/desertthunder/castro/internal/repositories"
	"github.com/desertthunder/castro/internal/shared"
)

const latestEpisodesLimit = 50

// Transport dispatches named playback commands on the in-process player.
// Satisfied by tasks.Engine.
type Transport interface {
	PlayerAction(action string) error
}

// LibraryHandler serves the JSON surface over the podcast library. Reads come
// from the repositories; player writes go through the transport so remote
// clients control the playback running in this process.
type LibraryHandler struct {
	podcasts  *repositories.PodcastRepository
	episodes  *repositories.EpisodeRepository
	tracker   *downloads.Tracker
	player    *player.Player
	transport Transport
	logger    *log.Logger
}

// NewLibraryHandler creates a LibraryHandler backed by the given stores.
func NewLibraryHandler(podcasts *repositories.PodcastRepository, episodes *repositories.EpisodeRepository, tracker *downloads.Tracker, p *player.Player, transport Transport, logger *log.Logger) *LibraryHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryHandler{podcasts: podcasts, episodes: episodes, tracker: tracker, player: p, transport: transport, logger: logger}
}

// Routes returns the method-qualified patterns this handler serves.
func (h *LibraryHandler) Routes() []string {
	return []string{
		"GET /api/podcasts",
		"GET /api/podcasts/{id}/episodes",
		"GET /api/episodes/latest",
		"GET /api/episodes/history",
		"GET /api/episodes/{id}",
		"GET /api/downloads",
		"GET /api/player",
		"POST /api/player/seek",
		"POST /api/player/{action}",
	}
}

// ServeHTTP dispatches on the matched route pattern.
func (h *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /api/podcasts":
		h.listPodcasts(w)
	case "GET /api/podcasts/{id}/episodes":
		h.listEpisodes(w, r)
	case "GET /api/episodes/latest":
		h.latestEpisodes(w)
	case "GET /api/episodes/history":
		h.listenHistory(w)
	case "GET /api/episodes/{id}":
		h.getEpisode(w, r)
	case "GET /api/downloads":
		h.downloadSnapshot(w)
	case "GET /api/player":
		h.playerStatus(w)
	case "POST /api/player/seek":
		h.playerSeek(w, r)
	case "POST /api/player/{action}":
		h.playerAction(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *LibraryHandler) listPodcasts(w http.ResponseWriter) {
	podcasts, err := h.podcasts.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, podcasts)
}

func (h *LibraryHandler) listEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// 404 for unknown podcasts instead of an empty list.
	if _, err := h.podcasts.Get(id); err != nil {
		h.writeError(w, err)
		return
	}

	episodes, err := h.episodes.ListForPodcast(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, episodes)
}

func (h *LibraryHandler) latestEpisodes(w http.ResponseWriter) {
	episodes, err := h.episodes.ListLatest(latestEpisodesLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, episodes)
}

func (h *LibraryHandler) listenHistory(w http.ResponseWriter) {
	episodes, err := h.episodes.ListListenHistory()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, episodes)
}

func (h *LibraryHandler) getEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	episode, err := h.episodes.GetWithPodcast(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	progress, err := h.episodes.GetProgress(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"episode":  episode,
		"progress": progress,
	})
}

// DownloadStatus is one in-flight transfer in the snapshot endpoint.
type DownloadStatus struct {
	EpisodeID     int64   `json:"episode_id"`
	ReceivedBytes int64   `json:"received_bytes"`
	TotalBytes    int64   `json:"total_bytes"`
	Fraction      float64 `json:"fraction"`
	Indeterminate bool    `json:"indeterminate"`
}

func (h *LibraryHandler) downloadSnapshot(w http.ResponseWriter) {
	statuses := []DownloadStatus{}
	for _, id := range h.tracker.InFlight() {
		p, ok := h.tracker.Progress(id)
		if !ok {
			continue
		}
		statuses = append(statuses, DownloadStatus{
			EpisodeID:     id,
			ReceivedBytes: p.ReceivedBytes,
			TotalBytes:    p.TotalBytes,
			Fraction:      p.Fraction,
			Indeterminate: p.Indeterminate,
		})
	}
	h.writeJSON(w, statuses)
}

// PlayerStatus is the transport snapshot with durations in whole seconds.
type PlayerStatus struct {
	State           string  `json:"state"`
	Episode         any     `json:"episode,omitempty"`
	PositionSeconds int64   `json:"position_seconds"`
	DurationSeconds int64   `json:"duration_seconds"`
	Volume          float64 `json:"volume"`
}

func (h *LibraryHandler) playerStatus(w http.ResponseWriter) {
	s := h.player.Status()
	status := PlayerStatus{
		State:           s.State.String(),
		PositionSeconds: int64(s.Position / time.Second),
		DurationSeconds: int64(s.Duration / time.Second),
		Volume:          s.Volume,
	}
	if s.Episode != nil {
		status.Episode = s.Episode
	}
	h.writeJSON(w, status)
}

func (h *LibraryHandler) playerAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	if err := h.transport.PlayerAction(action); err != nil {
		h.writeError(w, err)
		return
	}
	h.playerStatus(w)
}

// SeekRequest is the body of POST /api/player/seek.
type SeekRequest struct {
	PositionSeconds int64 `json:"position_seconds"`
}

func (h *LibraryHandler) playerSeek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, shared.ErrInvalidInput)
		return
	}
	if req.PositionSeconds < 0 {
		h.writeError(w, shared.ErrInvalidArgument)
		return
	}
	if err := h.player.SeekTo(time.Duration(req.PositionSeconds) * time.Second); err != nil {
		h.writeError(w, err)
		return
	}
	h.playerStatus(w)
}

func (h *LibraryHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "err", err)
	}
}

func (h *LibraryHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrPodcastNotFound), errors.Is(err, shared.ErrEpisodeNotFound), errors.Is(err, shared.ErrProgressNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrNoEpisodeLoaded):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidArgument
	}
	return id, nil
}
