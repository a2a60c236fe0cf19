package model

import "time"

// Sync queue actions
const (
	SyncActionCreate = "create"
	SyncActionClaim  = "claim"
)

// SyncItem is one pending reward mutation awaiting replay against the remote
// account service. Items are drained FIFO; RetryCount is capped, after which
// the item is abandoned rather than blocking the queue.
type SyncItem struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	RewardID   string    `json:"reward_id"`
	Payload    string    `json:"payload"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}
