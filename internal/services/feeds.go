package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/shared"
)

// WebFeedService implements [FeedService] over plain HTTP.
type WebFeedService struct {
	httpClient *http.Client
}

// NewWebFeedService creates a feed service with the given HTTP client.
func NewWebFeedService(client *http.Client) *WebFeedService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &WebFeedService{httpClient: client}
}

// rssDocument covers the subset of RSS the import path needs.
type rssDocument struct {
	Channel struct {
		Title       string `xml:"title"`
		Description string `xml:"description"`
		Image       struct {
			URL string `xml:"url"`
		} `xml:"image"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	GUID      string `xml:"guid"`
	PubDate   string `xml:"pubDate"`
	Duration  string `xml:"duration"`
	Enclosure struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
}

// ImportPodcastFromURL fetches and parses the feed at url.
func (s *WebFeedService) ImportPodcastFromURL(ctx context.Context, url string) (*models.Podcast, []models.Episode, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("%w: feed url", shared.ErrMissingArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("%w: status %d fetching feed", shared.ErrAPIRequest, resp.StatusCode)
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	podcast := &models.Podcast{
		Title:       strings.TrimSpace(doc.Channel.Title),
		FeedURL:     url,
		ImageURL:    doc.Channel.Image.URL,
		Description: strings.TrimSpace(doc.Channel.Description),
	}

	episodes := make([]models.Episode, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		if item.Enclosure.URL == "" {
			continue
		}
		guid := item.GUID
		if guid == "" {
			guid = item.Enclosure.URL
		}

		episodes = append(episodes, models.Episode{
			GUID:            guid,
			Title:           strings.TrimSpace(item.Title),
			AudioURL:        item.Enclosure.URL,
			DurationSeconds: parseDuration(item.Duration),
			DownloadState:   models.DownloadStateNone,
			PublishedAt:     parsePubDate(item.PubDate),
		})
	}

	return podcast, episodes, nil
}

// FetchMediaStream opens the audio stream for an episode.
func (s *WebFeedService) FetchMediaStream(ctx context.Context, episode *models.Episode) (io.ReadCloser, int64, error) {
	if episode == nil || episode.AudioURL == "" {
		return nil, 0, fmt.Errorf("%w: episode audio url", shared.ErrMissingArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, episode.AudioURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: status %d fetching media", shared.ErrAPIRequest, resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}

// parseDuration handles the itunes:duration forms "SS", "MM:SS" and "HH:MM:SS".
func parseDuration(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	parts := strings.Split(raw, ":")
	var total int64
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
