package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/downloads"
	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/player"
	"github.com/desertthunder/castro/internal/repositories"
	"github.com/desertthunder/castro/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PodcastListView ViewState = iota
	EpisodeListView
)

const tickInterval = time.Second

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	podcasts *repositories.PodcastRepository
	episodes *repositories.EpisodeRepository
	engine   *tasks.Engine
	player   *player.Player
	tracker  *downloads.Tracker
	changes  *bus.Bus
	sub      *bus.Subscription

	view        ViewState
	width       int
	height      int
	podcastList list.Model
	episodeList list.Model
	current     models.Podcast
	episodeRows []models.EpisodeWithProgress
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, podcasts *repositories.PodcastRepository, episodes *repositories.EpisodeRepository, engine *tasks.Engine, p *player.Player, tracker *downloads.Tracker, changes *bus.Bus) *Model {
	podcastList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	podcastList.Title = "Podcasts"
	episodeList := list.New(nil, list.NewDefaultDelegate(), 0, 0)

	return &Model{
		ctx:         ctx,
		podcasts:    podcasts,
		episodes:    episodes,
		engine:      engine,
		player:      p,
		tracker:     tracker,
		changes:     changes,
		view:        PodcastListView,
		podcastList: podcastList,
		episodeList: episodeList,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init loads the library and starts the bus listener and refresh tick.
func (m *Model) Init() tea.Cmd {
	m.sub = m.changes.Subscribe()
	return tea.Batch(m.loadPodcasts(), m.waitForNotification(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.podcastList.SetSize(msg.Width-4, msg.Height-8)
		m.episodeList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleTransportKeys(msg); handled {
			return m, cmd
		}
		switch m.view {
		case PodcastListView:
			return m.handlePodcastListKeys(msg)
		case EpisodeListView:
			return m.handleEpisodeListKeys(msg)
		}

	case podcastsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.podcasts))
		for i, p := range msg.podcasts {
			items[i] = podcastItem{podcast: p}
		}
		m.podcastList.SetItems(items)
		return m, nil

	case episodesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.current = msg.podcast
		m.episodeRows = msg.episodes
		m.episodeList.SetItems(m.episodeItems())
		m.episodeList.Title = msg.podcast.Title
		m.view = EpisodeListView
		return m, nil

	case notificationMsg:
		return m, tea.Batch(m.handleNotification(bus.Notification(msg)), m.waitForNotification())

	case busClosedMsg:
		return m, nil

	case tickMsg:
		if m.view == EpisodeListView {
			m.episodeList.SetItems(m.episodeItems())
		}
		return m, m.tick()
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PodcastListView:
		body = m.renderPodcastList()
	case EpisodeListView:
		body = m.renderEpisodeList()
	}

	lines := body + "\n\n" + m.renderPlayerLine()
	if m.err != nil {
		lines += "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	} else if m.status != "" {
		lines += "\n" + styles.warn.Render(m.status)
	}
	return lines
}

// handleTransportKeys processes the playback keys that work in every view.
func (m *Model) handleTransportKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.pause):
		if m.player.Status().State == player.StatePlaying {
			m.player.Pause()
		} else {
			m.player.Play()
		}
	case key.Matches(msg, m.keys.forward):
		m.player.SkipForwards()
	case key.Matches(msg, m.keys.backward):
		m.player.SkipBackwards()
	case key.Matches(msg, m.keys.volUp):
		m.player.SetVolume(m.player.Status().Volume + 0.1)
	case key.Matches(msg, m.keys.volDown):
		m.player.SetVolume(m.player.Status().Volume - 0.1)
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) handlePodcastListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.sync):
		m.status = "Syncing podcasts..."
		m.engine.SyncPodcasts(m.ctx)
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.podcastList.SelectedItem().(podcastItem); ok {
			return m, m.loadEpisodes(item.podcast)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.podcastList, cmd = m.podcastList.Update(msg)
	return m, cmd
}

func (m *Model) handleEpisodeListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PodcastListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.episodeList.SelectedItem().(episodeItem); ok {
			if err := m.engine.PlayEpisode(item.episode.Episode.ID); err != nil {
				m.err = err
			} else {
				m.err = nil
				m.status = fmt.Sprintf("Playing %s", item.episode.Episode.Title)
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.download):
		if item, ok := m.episodeList.SelectedItem().(episodeItem); ok {
			if _, err := m.engine.DownloadEpisode(m.ctx, item.episode.Episode.ID); err != nil {
				m.err = err
			} else {
				m.err = nil
				m.status = fmt.Sprintf("Downloading %s", item.episode.Episode.Title)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.episodeList, cmd = m.episodeList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PodcastListView:
		m.podcastList, cmd = m.podcastList.Update(msg)
	case EpisodeListView:
		m.episodeList, cmd = m.episodeList.Update(msg)
	}
	return m, cmd
}

// handleNotification maps terminal signals to a status line and refreshes
// whichever list the notification makes stale.
func (m *Model) handleNotification(n bus.Notification) tea.Cmd {
	switch n.Signal {
	case bus.SignalSyncDone:
		m.status = "Sync finished"
		return m.loadPodcasts()
	case bus.SignalSyncError:
		m.status = "Sync failed"
	case bus.SignalImportDone:
		m.status = "Import finished"
		return m.loadPodcasts()
	case bus.SignalImportError:
		m.status = "Import failed"
	case bus.SignalDownloadDone:
		m.status = "Download finished"
		return m.refreshEpisodes()
	case bus.SignalDownloadError:
		m.status = "Download failed"
		return m.refreshEpisodes()
	case bus.SignalInvalidateCache:
		if m.view == EpisodeListView {
			return m.refreshEpisodes()
		}
		return m.loadPodcasts()
	}
	return nil
}

func (m *Model) episodeItems() []list.Item {
	items := make([]list.Item, len(m.episodeRows))
	for i, ep := range m.episodeRows {
		fraction := -1.0
		if p, ok := m.tracker.Progress(ep.Episode.ID); ok && !p.Indeterminate {
			fraction = p.Fraction
		}
		items[i] = episodeItem{episode: ep, fraction: fraction}
	}
	return items
}

func (m *Model) loadPodcasts() tea.Cmd {
	return func() tea.Msg {
		podcasts, err := m.podcasts.List()
		return podcastsLoadedMsg{podcasts: podcasts, err: err}
	}
}

func (m *Model) loadEpisodes(podcast models.Podcast) tea.Cmd {
	return func() tea.Msg {
		episodes, err := m.episodes.ListForPodcast(podcast.ID)
		return episodesLoadedMsg{podcast: podcast, episodes: episodes, err: err}
	}
}

// refreshEpisodes reloads the open episode list in place.
func (m *Model) refreshEpisodes() tea.Cmd {
	if m.view != EpisodeListView {
		return nil
	}
	return m.loadEpisodes(m.current)
}

func (m *Model) waitForNotification() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-m.sub.C
		if !ok {
			return busClosedMsg{}
		}
		return notificationMsg(n)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) renderPodcastList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.podcastList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderEpisodeList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.download, m.keys.pause, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.episodeList.View(), m.help.ShortHelpView(helpKeys))
}

// renderPlayerLine is the persistent transport footer.
func (m *Model) renderPlayerLine() string {
	s := m.player.Status()
	if s.State == player.StateStopped || s.Episode == nil {
		return styles.help.Render("nothing playing")
	}

	pos := formatDuration(int64(s.Position / time.Second))
	dur := formatDuration(int64(s.Duration / time.Second))
	line := fmt.Sprintf("%s %s  %s / %s  vol %.0f%%", stateGlyph(s.State), s.Episode.Title, pos, dur, s.Volume*100)
	if s.State == player.StatePaused {
		return styles.warn.Render(line)
	}
	return styles.ok.Render(line)
}

func stateGlyph(s player.State) string {
	if s == player.StatePaused {
		return "⏸"
	}
	return "▶"
}
