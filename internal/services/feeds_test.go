package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/castro/internal/models"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Go Time</title>
    <description>A show about Go</description>
    <image><url>http://example.com/cover.jpg</url></image>
    <item>
      <title>Episode One</title>
      <guid>ep-1</guid>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <duration>1:02:30</duration>
      <enclosure url="http://example.com/ep1.mp3" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>No Audio</title>
      <guid>ep-2</guid>
    </item>
  </channel>
</rss>`

func TestImportPodcastFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	svc := NewWebFeedService(server.Client())
	podcast, episodes, err := svc.ImportPodcastFromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ImportPodcastFromURL returned error: %v", err)
	}

	if podcast.Title != "Go Time" {
		t.Errorf("expected title Go Time, got %s", podcast.Title)
	}
	if podcast.FeedURL != server.URL {
		t.Errorf("expected feed URL %s, got %s", server.URL, podcast.FeedURL)
	}

	// Items without an enclosure are skipped
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(episodes))
	}
	ep := episodes[0]
	if ep.GUID != "ep-1" {
		t.Errorf("expected guid ep-1, got %s", ep.GUID)
	}
	if ep.DurationSeconds != 3750 {
		t.Errorf("expected duration 3750, got %d", ep.DurationSeconds)
	}
	if ep.PublishedAt.IsZero() {
		t.Error("expected pubDate to be parsed")
	}
	if ep.DownloadState != models.DownloadStateNone {
		t.Errorf("expected not_downloaded, got %s", ep.DownloadState)
	}
}

func TestFetchMediaStream(t *testing.T) {
	payload := []byte("audio-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	svc := NewWebFeedService(server.Client())
	episode := &models.Episode{ID: 1, AudioURL: server.URL + "/ep1.mp3"}

	body, size, err := svc.FetchMediaStream(context.Background(), episode)
	if err != nil {
		t.Fatalf("FetchMediaStream returned error: %v", err)
	}
	defer body.Close()

	if size != int64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), size)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("unexpected stream contents: %q", data)
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]int64{
		"":         0,
		"90":       90,
		"2:30":     150,
		"1:02:30":  3750,
		"bad:data": 0,
	}
	for raw, want := range cases {
		if got := parseDuration(raw); got != want {
			t.Errorf("parseDuration(%q) = %d, want %d", raw, got, want)
		}
	}
}
