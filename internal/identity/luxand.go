package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LuxandClient talks to a Luxand-compatible face API through RapidAPI.
type LuxandClient struct {
	baseURL    string
	apiKey     string
	host       string
	httpClient *http.Client
}

// NewLuxandClient creates a client for baseURL. host is sent as x-rapidapi-host.
func NewLuxandClient(baseURL, apiKey, host string) *LuxandClient {
	return &LuxandClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		host:       host,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type subjectResponse struct {
	ID json.Number `json:"id"`
}

type faceResponse struct {
	ID json.Number `json:"id"`
}

type searchResult struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Probability float64     `json:"probability"`
}

// Register creates a subject named name and returns its id
func (c *LuxandClient) Register(ctx context.Context, name string) (string, error) {
	var resp subjectResponse
	if err := c.do(ctx, http.MethodPost, "/subject", url.Values{"name": {name}}, &resp); err != nil {
		return "", fmt.Errorf("failed to register subject: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("failed to register subject: empty id in response")
	}
	return resp.ID.String(), nil
}

// AttachFace adds a photo to the subject
func (c *LuxandClient) AttachFace(ctx context.Context, subjectID string, photo []byte) error {
	form := url.Values{"photo": {base64.StdEncoding.EncodeToString(photo)}}
	if err := c.do(ctx, http.MethodPost, "/subject/"+url.PathEscape(subjectID), form, nil); err != nil {
		return fmt.Errorf("failed to attach face: %w", err)
	}
	return nil
}

// RemoveFace deletes every photo attached to the subject, keeping the subject itself
func (c *LuxandClient) RemoveFace(ctx context.Context, subjectID string) error {
	var faces []faceResponse
	path := "/subject/" + url.PathEscape(subjectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &faces); err != nil {
		return fmt.Errorf("failed to list faces: %w", err)
	}

	for _, f := range faces {
		if err := c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(f.ID.String()), nil, nil); err != nil {
			return fmt.Errorf("failed to remove face %s: %w", f.ID, err)
		}
	}
	return nil
}

// Delete removes the subject and its photos
func (c *LuxandClient) Delete(ctx context.Context, subjectID string) error {
	if err := c.do(ctx, http.MethodDelete, "/subject/"+url.PathEscape(subjectID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	return nil
}

// Recognize searches every subject for the face on photo
func (c *LuxandClient) Recognize(ctx context.Context, photo []byte) ([]Match, error) {
	var results []searchResult
	form := url.Values{"photo": {base64.StdEncoding.EncodeToString(photo)}}
	if err := c.do(ctx, http.MethodPost, "/photo/search", form, &results); err != nil {
		return nil, fmt.Errorf("failed to search faces: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{SubjectID: r.ID.String(), Probability: r.Probability}
	}
	return matches, nil
}

func (c *LuxandClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("face api returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
