package model

import "time"

// Reward type constants
const (
	RewardTaskComplete = "task_complete"
	RewardDailyBonus   = "daily_bonus"
	RewardStreakBonus  = "streak_bonus"
	RewardLevelUp      = "level_up"
	RewardEvent        = "event_reward"
	RewardPurchased    = "purchased"
)

// Currency constants
const (
	CurrencySeeds = "seeds"
	CurrencyCoins = "coins"
	CurrencyXP    = "xp"
	CurrencyBadge = "badge"
)

// Reward is a discrete, claimable grant of currency or a badge, created by a
// qualifying event. Claiming is the only path that moves its amount into the
// durable balance; a reward is never mutated after claiming.
type Reward struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Amount      int               `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Claimed     bool              `json:"claimed"`
	ClaimedAt   *time.Time        `json:"claimed_at"`
	ExpiresAt   *time.Time        `json:"expires_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Expired reports whether the reward carries an expiry that has passed.
func (r *Reward) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Balance is the durable running total of claimed currency amounts.
type Balance struct {
	Seeds  int      `json:"seeds"`
	Coins  int      `json:"coins"`
	XP     int      `json:"xp"`
	Badges []string `json:"badges"`
}

// RewardedTask is one entry of the de-duplication index preventing multiple
// awards for a single task completion. Points holds the amount actually
// awarded, so a reversal deducts exactly what was granted even if the task's
// priority changed afterwards.
type RewardedTask struct {
	TaskID    int64     `json:"task_id"`
	Points    int       `json:"points"`
	RewardID  string    `json:"reward_id"`
	CreatedAt time.Time `json:"created_at"`
}
