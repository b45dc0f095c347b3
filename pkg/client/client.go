package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flowtap/flowtap/pkg/models"
)

// Client talks to a running flowtap supervisor over its HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the supervisor at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Run submits code under a cell identity and returns its queue position
func (c *Client) Run(cellID, code, args string) (*models.QueueStatus, error) {
	data, err := json.Marshal(models.RunRequest{Code: code, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/cells/%s/run", c.baseURL, cellID),
		"application/json",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to submit cell: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("submit failed with status %d: %s", resp.StatusCode, string(body))
	}

	var status models.QueueStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// Cancel aborts a cell
func (c *Client) Cancel(cellID string) error {
	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/cells/%s/cancel", c.baseURL, cellID),
		"application/json",
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel cell: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cancel failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Queue fetches an ordered snapshot of the submission queue
func (c *Client) Queue() ([]models.QueueEntryInfo, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/queue")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("queue fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var entries []models.QueueEntryInfo
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode queue: %w", err)
	}
	return entries, nil
}

// Status fetches the last-known status of a cell
func (c *Client) Status(cellID string) (*models.StatusRecord, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/cells/%s/status", c.baseURL, cellID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("cell %s not found", cellID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var rec models.StatusRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &rec, nil
}

// Logs fetches the retained output of a cell
func (c *Client) Logs(cellID string) ([]string, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/cells/%s/logs", c.baseURL, cellID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("cell %s not found", cellID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("logs fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		CellID string   `json:"cell_id"`
		Lines  []string `json:"lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode logs: %w", err)
	}
	return payload.Lines, nil
}
