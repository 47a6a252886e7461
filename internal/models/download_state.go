package models

// DownloadState represents the download lifecycle of an episode's media file.
type DownloadState string

const (
	// DownloadStateNone means no media has been fetched for the episode.
	DownloadStateNone DownloadState = "not_downloaded"

	// DownloadStateDownloading means a transfer is currently in flight.
	DownloadStateDownloading DownloadState = "downloading"

	// DownloadStateDownloaded means the media is fully on disk.
	DownloadStateDownloaded DownloadState = "downloaded"
)

// String returns the string representation of DownloadState.
func (s DownloadState) String() string {
	return string(s)
}

// IsTerminal returns true if the state is a resting state, i.e. no transfer
// is in flight.
func (s DownloadState) IsTerminal() bool {
	return s == DownloadStateNone || s == DownloadStateDownloaded
}

// CanTransition reports whether moving to the given state is allowed.
//
// Forward moves follow not_downloaded -> downloading -> downloaded. The
// only backward move is downloading -> not_downloaded, taken when a
// transfer fails and its persisted state is rolled back.
func (s DownloadState) CanTransition(to DownloadState) bool {
	switch s {
	case DownloadStateNone:
		return to == DownloadStateDownloading
	case DownloadStateDownloading:
		return to == DownloadStateDownloaded || to == DownloadStateNone
	case DownloadStateDownloaded:
		return false
	default:
		return false
	}
}
