package attachment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is an open download.
type Response struct {
	Body io.ReadCloser
	// ContentLength is -1 when the source did not declare one.
	ContentLength int64
	ContentType   string
}

// Transport opens remote files.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// HTTPTransport fetches attachments over HTTP(S).
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates an HTTPTransport. A nil client gets a 30s timeout.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{client: client}
}

// Get issues a GET request. Non-2xx responses are errors.
func (t *HTTPTransport) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Transparent decompression would hide the declared length.
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return &Response{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}
