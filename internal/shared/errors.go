package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrConfigPersist = fmt.Errorf("configuration persist failed")

	// Registration and sync backend errors
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrNotRegistered      = fmt.Errorf("device not registered")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Domain lookup errors
	ErrPodcastNotFound  = fmt.Errorf("podcast not found")
	ErrEpisodeNotFound  = fmt.Errorf("episode not found")
	ErrProgressNotFound = fmt.Errorf("episode progress not found")

	// Download errors
	ErrAlreadyDownloading = fmt.Errorf("episode download already in progress")
	ErrDownloadFailed     = fmt.Errorf("episode download failed")

	// Playback errors
	ErrNoEpisodeLoaded = fmt.Errorf("no episode loaded")
	ErrDecodeInit      = fmt.Errorf("decode chain initialization failed")
	ErrNotDownloaded   = fmt.Errorf("episode media not downloaded")

	// Change bus errors
	ErrNoSubscribers = fmt.Errorf("no subscribers reachable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
