package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StreamEvent is one server-sent event.
type StreamEvent struct {
	ID    string
	Event string
	Data  string
}

// Stream opens GET /v1/events and calls fn for every event until ctx is
// done, the server closes the stream, or fn returns an error. kinds, when
// non-empty, restricts the stream server-side.
func (c *HTTPClient) Stream(ctx context.Context, kinds []string, fn func(StreamEvent) error) error {
	path := "/v1/events"
	if len(kinds) > 0 {
		path += "?kinds=" + url.QueryEscape(strings.Join(kinds, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return ParseResponse(resp, nil)
	}
	defer resp.Body.Close()

	err = ReadEvents(bufio.NewReader(resp.Body), fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ReadEvents parses an event stream, dispatching each event on the blank
// line that ends it. Comment lines and retry fields are skipped.
func ReadEvents(r *bufio.Reader, fn func(StreamEvent) error) error {
	var (
		ev   StreamEvent
		data []string
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, data = StreamEvent{}, nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			ev.ID = value
		case "event":
			ev.Event = value
		case "data":
			data = append(data, value)
		}
	}
}
