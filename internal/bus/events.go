package bus

import "fmt"

// Signal names used on the wire. The frontend matches on these.
const (
	SignalInvalidateCache = "invalidate-cache"

	SignalSyncDone  = "sync-podcasts-done"
	SignalSyncError = "sync-podcasts-error"

	SignalImportDone  = "import-podcast-done"
	SignalImportError = "import-podcast-error"

	SignalDownloadDone  = "download-episode-done"
	SignalDownloadError = "download-episode-error"
)

// EntityKind identifies which class of cached entity changed.
type EntityKind string

const (
	EntityAllPodcasts     EntityKind = "all_podcasts"
	EntityPodcast         EntityKind = "podcast"
	EntityPodcastEpisodes EntityKind = "podcast_episodes"
	EntityEpisode         EntityKind = "episode"
)

// EntityChange identifies one stale cached entity. It is a value type,
// consumed immediately by the bus and never stored.
type EntityChange struct {
	Kind EntityKind `json:"kind"`
	ID   int64      `json:"id,omitempty"` // unset for all_podcasts
}

// AllPodcasts signals that the whole podcast list is stale.
func AllPodcasts() EntityChange {
	return EntityChange{Kind: EntityAllPodcasts}
}

// PodcastChange signals that one podcast's metadata is stale.
func PodcastChange(id int64) EntityChange {
	return EntityChange{Kind: EntityPodcast, ID: id}
}

// PodcastEpisodesChange signals that a podcast's episode list is stale.
func PodcastEpisodesChange(id int64) EntityChange {
	return EntityChange{Kind: EntityPodcastEpisodes, ID: id}
}

// EpisodeChange signals that one episode is stale.
func EpisodeChange(id int64) EntityChange {
	return EntityChange{Kind: EntityEpisode, ID: id}
}

func (c EntityChange) String() string {
	if c.Kind == EntityAllPodcasts {
		return string(c.Kind)
	}
	return fmt.Sprintf("%s(%d)", c.Kind, c.ID)
}
