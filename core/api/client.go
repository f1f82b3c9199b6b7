// Package api is the HTTP client for the discussion simulation backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8000"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(opts ...ClientOption) *Client {
	client := Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(&client)
	}

	client.baseURL = strings.TrimRight(client.baseURL, "/")
	return &client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// StartSimulation creates a new discussion session on the backend and returns
// its id along with the generated agent roster.
func (c *Client) StartSimulation(ctx context.Context, req StartRequest) (*Simulation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling start request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/start_simulation", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating start request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("starting simulation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var simulation Simulation
	if err := json.NewDecoder(resp.Body).Decode(&simulation); err != nil {
		return nil, fmt.Errorf("decoding start response: %w", err)
	}
	return &simulation, nil
}

// NextRound requests one round of the discussion. The returned body is the
// incrementally-delivered event stream; the caller owns closing it. Round
// streams have no overall deadline, so the request deliberately bypasses the
// client timeout and is bounded by ctx instead.
func (c *Client) NextRound(ctx context.Context, simulationID string) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/next_round/"+url.PathEscape(simulationID), nil)
	if err != nil {
		return nil, fmt.Errorf("creating next round request: %w", err)
	}

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("requesting next round: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// SubmitAudio sends a recorded clip as the human participant's turn. The
// backend transcribes it; a transcription failure comes back as
// Success=false, not as an error.
func (c *Client) SubmitAudio(ctx context.Context, simulationID string, clip []byte) (*SubmissionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return nil, fmt.Errorf("creating audio form file: %w", err)
	}
	if _, err := part.Write(clip); err != nil {
		return nil, fmt.Errorf("writing audio clip: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalising multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submit_human_input/"+url.PathEscape(simulationID), &body)
	if err != nil {
		return nil, fmt.Errorf("creating submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doSubmission(httpReq)
}

// SubmitText sends a typed reply as the human participant's turn.
func (c *Client) SubmitText(ctx context.Context, simulationID, text string) (*SubmissionResult, error) {
	endpoint := c.baseURL + "/submit_human_input/" + url.PathEscape(simulationID) +
		"?text=" + url.QueryEscape(text)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating submission request: %w", err)
	}

	return c.doSubmission(httpReq)
}

func (c *Client) doSubmission(req *http.Request) (*SubmissionResult, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting human input: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding submission response: %w", err)
	}
	return &result, nil
}

// Health reports the backend's speech capabilities. The caller is expected
// to disable audio recording when either capability is missing.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checking backend health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &health, nil
}

func statusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(bytes.TrimSpace(detail)) == 0 {
		return fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}
	return fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, bytes.TrimSpace(detail))
}
