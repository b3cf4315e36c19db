package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(userID int) *Client {
	return &Client{ID: "test", UserID: userID, Send: make(chan []byte, 4)}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_BroadcastToOwnerOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	alice := testClient(1)
	bob := testClient(2)
	hub.Join(alice)
	hub.Join(bob)

	hub.BroadcastTo(1, Encode("task.created", map[string]int{"id": 7}))

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, alice), &msg))
	assert.Equal(t, "task.created", msg.Action)

	// A follow-up message for bob proves alice's was not delivered to him.
	hub.BroadcastTo(2, Encode("task.deleted", nil))
	require.NoError(t, json.Unmarshal(receive(t, bob), &msg))
	assert.Equal(t, "task.deleted", msg.Action)
}

func TestHub_LeaveClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := testClient(1)
	hub.Join(c)
	hub.Leave(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHub_StopIsSafeForLateCallers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	c := testClient(1)
	hub.Join(c)
	hub.Stop()

	// None of these may block after Stop.
	done := make(chan struct{})
	go func() {
		hub.Join(testClient(2))
		hub.Leave(c)
		hub.BroadcastTo(1, []byte("x"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Stop")
	}
}
