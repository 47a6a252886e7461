package tasks

import (
	"github.com/desertthunder/castro/internal/bus"
)

// SyncResult is the payload of a terminal sync notification.
type SyncResult struct {
	RequestID string `json:"request_id"`
	Imported  int    `json:"imported"` // feeds newly added to the library
	Total     int    `json:"total"`    // feeds the backend reported
}

// ImportResult is the payload of a terminal import notification.
type ImportResult struct {
	RequestID string `json:"request_id"`
	PodcastID int64  `json:"podcast_id"`
	Title     string `json:"title"`
	Episodes  int    `json:"episodes"`
}

// DownloadResult is the payload of a terminal download notification.
type DownloadResult struct {
	RequestID string `json:"request_id"`
	EpisodeID int64  `json:"episode_id"`
}

// OperationError is the payload of any terminal error notification.
type OperationError struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

func syncDoneNotification(requestID string, imported, total int) bus.Notification {
	return bus.Notification{
		Signal:  bus.SignalSyncDone,
		Payload: SyncResult{RequestID: requestID, Imported: imported, Total: total},
	}
}

func syncErrorNotification(requestID string, err error) bus.Notification {
	return bus.Notification{
		Signal:  bus.SignalSyncError,
		Payload: OperationError{RequestID: requestID, Message: err.Error()},
	}
}

func importDoneNotification(requestID string, podcastID int64, title string, episodes int) bus.Notification {
	return bus.Notification{
		Signal:  bus.SignalImportDone,
		Payload: ImportResult{RequestID: requestID, PodcastID: podcastID, Title: title, Episodes: episodes},
	}
}

func importErrorNotification(requestID string, err error) bus.Notification {
	return bus.Notification{
		Signal:  bus.SignalImportError,
		Payload: OperationError{RequestID: requestID, Message: err.Error()},
	}
}

func downloadDoneNotification(requestID string, episodeID int64) bus.Notification {
	return bus.Notification{
		Signal:  bus.SignalDownloadDone,
		Payload: DownloadResult{RequestID: requestID, EpisodeID: episodeID},
	}
}

func downloadErrorNotification(requestID string, err error) bus.Notification {
	return bus.Notification{
		Signal:  bus.SignalDownloadError,
		Payload: OperationError{RequestID: requestID, Message: err.Error()},
	}
}
