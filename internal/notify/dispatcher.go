package notify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sprouthq/sprout/internal/model"
	"github.com/sprouthq/sprout/internal/store"
	ws "github.com/sprouthq/sprout/internal/websocket"
)

// Broadcaster fans a message out to connected clients.
type Broadcaster interface {
	Broadcast(msg ws.Message)
}

// Dispatcher delivers a notification through web push, falling back to an
// in-app toast over the websocket hub when push is unconfigured, there are no
// subscriptions, or every delivery fails. All failures are soft: they are
// logged and the fallback fires, never an error to the caller.
type Dispatcher struct {
	push     *PushService // nil when VAPID keys are not configured
	subs     *store.PushStore
	settings *store.SettingsStore
	hub      Broadcaster
	logger   *slog.Logger
}

func NewDispatcher(push *PushService, subs *store.PushStore, settings *store.SettingsStore, hub Broadcaster, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		push:     push,
		subs:     subs,
		settings: settings,
		hub:      hub,
		logger:   logger,
	}
}

// TaskDueSoon notifies the user that a task is due in the given number of
// minutes.
func (d *Dispatcher) TaskDueSoon(task model.Task, minutes int) {
	title := "Task due soon"
	body := fmt.Sprintf("%q is due in %d minutes", task.Title, minutes)
	sound := d.soundEnabled()

	if d.pushAll(Payload{
		Title: title,
		Body:  body,
		URL:   "/tasks",
		Tag:   fmt.Sprintf("task-due-%d", task.ID),
		Sound: sound,
	}) {
		return
	}

	d.hub.Broadcast(ws.ToastMessage(title, body, sound))
}

// pushAll sends the payload to every subscription and reports whether at
// least one delivery succeeded. Expired subscriptions are pruned.
func (d *Dispatcher) pushAll(payload Payload) bool {
	if d.push == nil {
		return false
	}

	subs, err := d.subs.List()
	if err != nil {
		d.logger.Error("list push subscriptions", "error", err)
		return false
	}
	if len(subs) == 0 {
		return false
	}

	delivered := false
	for i := range subs {
		if err := d.push.Send(&subs[i], payload); err != nil {
			if errors.Is(err, ErrExpired) {
				d.subs.DeleteByEndpoint(subs[i].Endpoint)
			} else {
				d.logger.Warn("send push", "endpoint", subs[i].Endpoint, "error", err)
			}
			continue
		}
		delivered = true
	}
	return delivered
}

func (d *Dispatcher) soundEnabled() bool {
	if d.settings == nil {
		return true
	}
	return d.settings.GetBool("sound_alerts_enabled", true)
}
