package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/isdelr/ender-tasks/internal/models"
)

// Event is a task notification pushed by the server.
type Event struct {
	Action string      `json:"action"`
	Task   models.Task `json:"payload"`
}

// Watch streams task notifications to fn until ctx is done or the
// connection drops. It returns nil when ctx is cancelled.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return fmt.Errorf("invalid API url: %w", err)
	}
	header := http.Header{}
	if err := c.authorize(ctx, header); err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeError(resp)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		fn(ev)
	}
}
