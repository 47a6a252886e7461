// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/services"
)

// MockFeedService is a test double for [services.FeedService]. It returns one
// canned podcast per imported URL with EpisodeCount episodes, and serves
// Media as every episode's stream.
type MockFeedService struct {
	EpisodeCount int
	Media        []byte
	ImportErr    error
	FetchErr     error
}

func (m *MockFeedService) ImportPodcastFromURL(ctx context.Context, url string) (*models.Podcast, []models.Episode, error) {
	if m.ImportErr != nil {
		return nil, nil, m.ImportErr
	}
	podcast := &models.Podcast{Title: "Podcast at " + url, FeedURL: url}
	episodes := make([]models.Episode, m.EpisodeCount)
	for i := range episodes {
		episodes[i] = models.Episode{
			GUID:     fmt.Sprintf("%s#%d", url, i),
			Title:    fmt.Sprintf("Episode %d", i+1),
			AudioURL: fmt.Sprintf("%s/episode-%d.mp3", url, i+1),
		}
	}
	return podcast, episodes, nil
}

func (m *MockFeedService) FetchMediaStream(ctx context.Context, episode *models.Episode) (io.ReadCloser, int64, error) {
	if m.FetchErr != nil {
		return nil, 0, m.FetchErr
	}
	return io.NopCloser(bytes.NewReader(m.Media)), int64(len(m.Media)), nil
}

// MockSyncService is a test double for [services.SyncService].
type MockSyncService struct {
	AccessKey     string
	AccessToken   string
	Subscriptions []services.RemoteSubscription
	Err           error
}

func (m *MockSyncService) CreateUser(ctx context.Context) (string, error) {
	return m.AccessKey, m.Err
}

func (m *MockSyncService) CreateDevice(ctx context.Context, userAccessKey, deviceName string) (string, error) {
	return m.AccessToken, m.Err
}

func (m *MockSyncService) FetchSubscriptions(ctx context.Context) ([]services.RemoteSubscription, error) {
	return m.Subscriptions, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
