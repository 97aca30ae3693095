package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	defaultServerURL = "http://127.0.0.1:7575"
	httpTimeout      = 5 * time.Second
)

// Client talks to the rapport server.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// New creates a client for the given server. An empty apiKey sends no
// credential, which suits a server with no key configured.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultServerURL
	}
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewFromEnv creates a client from RAPPORT_URL and RAPPORT_API_KEY,
// falling back to http://127.0.0.1:7575.
func NewFromEnv() *Client {
	return New(os.Getenv("RAPPORT_URL"), os.Getenv("RAPPORT_API_KEY"))
}

// Friend is the server's view of one tracked friendship.
type Friend struct {
	Name       string  `json:"name"`
	LowerBound float64 `json:"lower_bound"`
	Fuzziness  float64 `json:"fuzziness"`
	UpperBound float64 `json:"upper_bound"`
	Rank       int     `json:"rank"`
	Status     string  `json:"status"`
	Volatility string  `json:"volatility"`
	Display    string  `json:"display"`
	UpdatedAt  int64   `json:"updated_at"`
}

// RecordResult is the outcome of recording one interaction.
type RecordResult struct {
	Friend
	Created      bool    `json:"created"`
	AppliedDelta float64 `json:"applied_delta"`
	RankChanged  bool    `json:"rank_changed"`
}

// HistoryEntry is one ledger row as the server reports it.
type HistoryEntry struct {
	Magnitude    float64 `json:"magnitude"`
	AppliedDelta float64 `json:"applied_delta"`
	PrevBound    float64 `json:"prev_bound"`
	NewBound     float64 `json:"new_bound"`
	PrevRank     int     `json:"prev_rank"`
	NewRank      int     `json:"new_rank"`
	Reason       string  `json:"reason"`
	OccurredAt   int64   `json:"occurred_at"`
}

// FriendDetail is a friend with ledger context and the rendered chart.
type FriendDetail struct {
	Friend
	Interactions  int            `json:"interactions"`
	History       []HistoryEntry `json:"history"`
	Visualization string         `json:"visualization"`
}

// StateView carries the raw state pair in a rebuild comparison.
type StateView struct {
	LowerBound float64 `json:"lower_bound"`
	Fuzziness  float64 `json:"fuzziness"`
}

// RebuildResult compares the stored state against the refolded ledger.
type RebuildResult struct {
	Name     string    `json:"name"`
	Stored   StateView `json:"stored"`
	Replayed StateView `json:"replayed"`
	Clean    bool      `json:"clean"`
}

// Health is the server's health report.
type Health struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime"`
	DB      bool    `json:"db"`
	Friends int     `json:"friends"`
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Health fetches the server's health report.
func (c *Client) Health() (*Health, error) {
	data, err := c.do("GET", "/api/health", nil)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &h, nil
}

// Record reports one interaction with a friend. The friend is created
// on first contact.
func (c *Client) Record(name string, magnitude float64, reason string) (*RecordResult, error) {
	body, _ := json.Marshal(map[string]any{
		"name":      name,
		"magnitude": magnitude,
		"reason":    reason,
	})
	data, err := c.do("POST", "/api/interactions", body)
	if err != nil {
		return nil, err
	}
	var out RecordResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &out, nil
}

// ListFriends fetches the roster, strongest bond first.
func (c *Client) ListFriends() ([]Friend, error) {
	data, err := c.do("GET", "/api/friends", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Friends []Friend `json:"friends"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode friends: %w", err)
	}
	return out.Friends, nil
}

// GetFriend fetches one friend with recent history and the chart.
func (c *Client) GetFriend(name string) (*FriendDetail, error) {
	data, err := c.do("GET", "/api/friends/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	var out FriendDetail
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode friend: %w", err)
	}
	return &out, nil
}

// CreateFriend registers a friend without recording an interaction.
func (c *Client) CreateFriend(name string) (*Friend, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	data, err := c.do("POST", "/api/friends", body)
	if err != nil {
		return nil, err
	}
	var out Friend
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode friend: %w", err)
	}
	return &out, nil
}

// DeleteFriend removes a friend and their ledger.
func (c *Client) DeleteFriend(name string) error {
	_, err := c.do("DELETE", "/api/friends/"+url.PathEscape(name), nil)
	return err
}

// History fetches a friend's most recent ledger rows, newest first.
// A limit of zero takes the server default.
func (c *Client) History(name string, limit int) ([]HistoryEntry, error) {
	path := "/api/friends/" + url.PathEscape(name) + "/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	data, err := c.do("GET", path, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		History []HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.History, nil
}

// Rebuild asks the server to refold a friend's ledger and report any
// drift it repaired.
func (c *Client) Rebuild(name string) (*RebuildResult, error) {
	data, err := c.do("POST", "/api/friends/"+url.PathEscape(name)+"/rebuild", nil)
	if err != nil {
		return nil, err
	}
	var out RebuildResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode rebuild: %w", err)
	}
	return &out, nil
}

// Report fetches the markdown roster digest.
func (c *Client) Report() (string, error) {
	data, err := c.do("GET", "/api/report", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Report string `json:"report"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode report: %w", err)
	}
	return out.Report, nil
}

// do sends one request with the API key attached and returns the
// response body. Bodies on 4xx and 5xx come back alongside the error so
// callers can surface the server's message.
func (c *Client) do(method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	return data, nil
}
