package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamEvent is one server-sent event frame.
type StreamEvent struct {
	Name string
	ID   string
	Data []byte
}

// EventStream reads frames from an open push stream.
type EventStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Stream opens the push stream. The caller must Close it; cancelling ctx also
// ends it.
func (c *Client) Stream(ctx context.Context) (*EventStream, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/notices/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("client.Stream: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Stream: do request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close() //nolint:errcheck // best-effort close
		return nil, fmt.Errorf("client.Stream: %w", decodeHTTPError(resp))
	}
	return &EventStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// Next blocks until a full frame arrives. It returns io.EOF when the server
// closes the stream.
func (s *EventStream) Next() (StreamEvent, error) {
	var (
		evt  StreamEvent
		data bytes.Buffer
		seen bool
	)
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && seen {
				evt.Data = data.Bytes()
				return evt, nil
			}
			return StreamEvent{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !seen {
				continue
			}
			evt.Data = data.Bytes()
			return evt, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			evt.Name = value
			seen = true
		case "id":
			evt.ID = value
			seen = true
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			seen = true
		}
	}
}

func (s *EventStream) Close() error {
	return s.body.Close()
}
