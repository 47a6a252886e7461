// API client for the podcast sync backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/castro/internal/shared"
)

// APIService implements [SyncService] against the sync backend's JSON API.
type APIService struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewAPIService creates a new API client for the sync backend.
func NewAPIService(baseURL, accessToken string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  client,
	}
}

type createUserResponse struct {
	AccessKey string `json:"access_key"`
}

type createDeviceRequest struct {
	UserAccessKey string `json:"user_access_key"`
	DeviceName    string `json:"device_name"`
}

type createDeviceResponse struct {
	AccessToken string `json:"access_token"`
}

// CreateUser registers a new anonymous user with the backend.
func (a *APIService) CreateUser(ctx context.Context) (string, error) {
	var resp createUserResponse
	if err := a.postJSON(ctx, "/api/users", nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessKey == "" {
		return "", fmt.Errorf("%w: backend returned empty access key", shared.ErrAPIRequest)
	}
	return resp.AccessKey, nil
}

// CreateDevice registers this device under a user access key.
func (a *APIService) CreateDevice(ctx context.Context, userAccessKey, deviceName string) (string, error) {
	if userAccessKey == "" {
		return "", fmt.Errorf("%w: user access key", shared.ErrMissingCredentials)
	}
	if deviceName == "" {
		return "", fmt.Errorf("%w: device name", shared.ErrMissingArgument)
	}

	req := createDeviceRequest{UserAccessKey: userAccessKey, DeviceName: deviceName}
	var resp createDeviceResponse
	if err := a.postJSON(ctx, "/api/devices", req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: backend returned empty access token", shared.ErrAPIRequest)
	}
	return resp.AccessToken, nil
}

// FetchSubscriptions retrieves the subscription list for this device.
func (a *APIService) FetchSubscriptions(ctx context.Context) ([]RemoteSubscription, error) {
	if a.accessToken == "" {
		return nil, shared.ErrNotRegistered
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/subscriptions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var subs []RemoteSubscription
	if err := json.NewDecoder(resp.Body).Decode(&subs); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subs, nil
}

// postJSON performs a POST with an optional JSON body and decodes the JSON response into out.
func (a *APIService) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.accessToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
