package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"dqx/internal/datasource"
)

var _ datasource.Source = (*Source)(nil)

// Source is a datasource.Source that downloads one URL.
type Source struct {
	client *Client
	url    string
}

// NewSource returns a Source fetching url through client. A nil client gets
// NewClient(Config{}).
func NewSource(client *Client, url string) *Source {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Source{client: client, url: url}
}

// Name returns the URL.
func (s *Source) Name() string { return s.url }

// Open fetches the URL. Any non-2xx final response is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: GET %s: %s", s.url, http.StatusText(resp.StatusCode))
	}
	return resp.Body, nil
}
