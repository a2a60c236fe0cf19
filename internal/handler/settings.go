package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sprouthq/sprout/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// GetNotifications handles GET /api/settings/notifications
func (h *SettingsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetNotificationSettings()
	if err != nil {
		h.logger.Error("get notification settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type notificationSettingsRequest struct {
	SoundAlertsEnabled  *bool `json:"sound_alerts_enabled"`
	ReminderLeadMinutes *int  `json:"reminder_lead_minutes"`
}

// UpdateNotifications handles PUT /api/settings/notifications
func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.SoundAlertsEnabled != nil {
		if err := h.settings.Set("sound_alerts_enabled", strconv.FormatBool(*req.SoundAlertsEnabled)); err != nil {
			h.logger.Error("set sound alerts", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}
	if req.ReminderLeadMinutes != nil {
		if *req.ReminderLeadMinutes < 1 {
			writeError(w, http.StatusBadRequest, "reminder_lead_minutes must be at least 1")
			return
		}
		if err := h.settings.Set("reminder_lead_minutes", strconv.Itoa(*req.ReminderLeadMinutes)); err != nil {
			h.logger.Error("set reminder lead", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	h.GetNotifications(w, r)
}
