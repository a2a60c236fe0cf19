package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sprouthq/sprout/internal/ledger"
	"github.com/sprouthq/sprout/internal/model"
)

type RewardHandler struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

func NewRewardHandler(l *ledger.Ledger, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{ledger: l, logger: logger}
}

// List handles GET /api/rewards
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.ledger.Rewards()
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

// Claim handles POST /api/rewards/{id}/claim
func (h *RewardHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	claimed, err := h.ledger.ClaimReward(id)
	if err != nil {
		h.logger.Error("claim reward", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to claim reward")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"claimed": claimed})
}

// ClaimAll handles POST /api/rewards/claim-all
func (h *RewardHandler) ClaimAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.ClaimAll()
	if err != nil {
		h.logger.Error("claim all rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to claim rewards")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"claimed": n})
}

// Balance handles GET /api/balance
func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	b, err := h.ledger.Balance()
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Stats handles GET /api/stats
func (h *RewardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.ledger.Stats()
	if err != nil {
		h.logger.Error("get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Celebration handles GET /api/celebration. The pending level-up event is
// consumed by the read, so the client shows it exactly once.
func (h *RewardHandler) Celebration(w http.ResponseWriter, r *http.Request) {
	c := h.ledger.ConsumeCelebration()
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DailyBonus handles POST /api/rewards/daily-bonus
func (h *RewardHandler) DailyBonus(w http.ResponseWriter, r *http.Request) {
	reward, err := h.ledger.GrantDailyBonus(time.Now())
	if err != nil {
		h.logger.Error("grant daily bonus", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to grant daily bonus")
		return
	}
	if reward == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"granted": false})
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}
