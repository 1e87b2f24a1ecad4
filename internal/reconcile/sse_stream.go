package reconcile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"whereabouts/backend/internal/models"
)

var dataPrefix = []byte("data: ")

// sseStream reads an SSE response body and decodes each data line into
// an event.
type sseStream struct {
	cancel context.CancelFunc
	events chan models.Event
}

func (s *sseStream) Events() <-chan models.Event { return s.events }
func (s *sseStream) Close()                      { s.cancel() }

// NewSSEDialer builds a Dialer for the server's /events endpoint. token
// is sent as a bearer token; client may be nil for http.DefaultClient.
func NewSSEDialer(url, token string, client *http.Client) Dialer {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context) (Stream, error) {
		streamCtx, cancel := context.WithCancel(ctx)

		req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
		if err != nil {
			cancel()
			return nil, err
		}
		req.Header.Set("Accept", "text/event-stream")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			cancel()
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
			resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("unexpected content type %q", ct)
		}

		stream := &sseStream{
			cancel: cancel,
			events: make(chan models.Event, 16),
		}

		go func() {
			defer resp.Body.Close()
			defer close(stream.events)

			scanner := bufio.NewScanner(resp.Body)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				if !bytes.HasPrefix(line, dataPrefix) {
					continue
				}
				var ev models.Event
				if err := json.Unmarshal(bytes.TrimPrefix(line, dataPrefix), &ev); err != nil {
					continue
				}
				select {
				case stream.events <- ev:
				case <-streamCtx.Done():
					return
				}
			}
		}()

		return stream, nil
	}
}
