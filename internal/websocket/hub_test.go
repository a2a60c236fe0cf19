package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	c := &Client{hub: hub, send: make(chan []byte, 1)}

	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}

	// Double unregister must not panic or double-close the send channel.
	hub.Unregister(c)
}

func TestBroadcast(t *testing.T) {
	hub := newTestHub()
	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.Register(c)

	hub.Broadcast(ToastMessage("Task due soon", "\"Water plants\" is due in 5 minutes", true))

	data := <-c.send
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if msg.Type != "toast" || msg.Title != "Task due soon" {
		t.Errorf("message = %+v", msg)
	}
	if sound, ok := msg.Extra["sound"].(bool); !ok || !sound {
		t.Errorf("sound extra = %v, want true", msg.Extra["sound"])
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	hub := newTestHub()
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast(EventMessage("task", "created", nil))
	hub.Broadcast(EventMessage("task", "updated", nil)) // buffer full, dropped

	if len(c.send) != 1 {
		t.Errorf("buffered = %d, want the overflow dropped", len(c.send))
	}
}
