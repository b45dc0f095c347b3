package tap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the worker side of the two channels: push-only,
// fire-and-forget. Delivery failures are swallowed so that a supervisor
// torn down mid-run never crashes the worker.
type Client struct {
	streamURL  string
	statusURL  string
	httpClient *http.Client
}

// NewClient creates a push client for the given channel addresses
// (bare host:port as passed on the worker command line)
func NewClient(streamAddr, statusAddr string) *Client {
	return &Client{
		streamURL: fmt.Sprintf("http://%s/", streamAddr),
		statusURL: fmt.Sprintf("http://%s/", statusAddr),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// PushChunk relays one piece of worker stdout on the stream channel
func (c *Client) PushChunk(chunk StreamChunk) {
	c.push(c.streamURL, chunk)
}

// PushStatus sends the terminal event on the informer channel
func (c *Client) PushStatus(msg StatusMessage) {
	c.push(c.statusURL, msg)
}

func (c *Client) push(url string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
