package store

import (
	"database/sql"
	"fmt"

	"github.com/sprouthq/sprout/internal/model"
)

// maxQueueSize caps the offline queue; when full, the oldest items are
// dropped so a long offline stretch cannot grow the table without bound.
const maxQueueSize = 500

type SyncQueueStore struct {
	db *sql.DB
}

func NewSyncQueueStore(db *sql.DB) *SyncQueueStore {
	return &SyncQueueStore{db: db}
}

const syncCols = `id, action, reward_id, payload, retry_count, created_at`

func scanSyncItem(scanner interface{ Scan(...any) error }) (*model.SyncItem, error) {
	var it model.SyncItem
	err := scanner.Scan(&it.ID, &it.Action, &it.RewardID, &it.Payload, &it.RetryCount, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Enqueue appends an item. A pending item with the same action and reward id
// is coalesced (the new item is dropped); replaying a claim twice buys
// nothing, and the create payload is already the full reward snapshot.
func (s *SyncQueueStore) Enqueue(it *model.SyncItem) error {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sync_queue WHERE action = ? AND reward_id = ?`,
		it.Action, it.RewardID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("check pending sync item: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = s.db.Exec(
		`INSERT INTO sync_queue (id, action, reward_id, payload) VALUES (?, ?, ?, ?)`,
		it.ID, it.Action, it.RewardID, it.Payload,
	)
	if err != nil {
		return fmt.Errorf("enqueue sync item: %w", err)
	}

	return s.trim()
}

func (s *SyncQueueStore) trim() error {
	_, err := s.db.Exec(
		`DELETE FROM sync_queue WHERE id IN (
			SELECT id FROM sync_queue ORDER BY rowid DESC LIMIT -1 OFFSET ?
		)`,
		maxQueueSize,
	)
	if err != nil {
		return fmt.Errorf("trim sync queue: %w", err)
	}
	return nil
}

// List returns all pending items in FIFO order.
func (s *SyncQueueStore) List() ([]model.SyncItem, error) {
	// rowid preserves insertion order even when created_at timestamps tie.
	rows, err := s.db.Query(`SELECT ` + syncCols + ` FROM sync_queue ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sync queue: %w", err)
	}
	defer rows.Close()

	var items []model.SyncItem
	for rows.Next() {
		it, err := scanSyncItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *SyncQueueStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sync item: %w", err)
	}
	return nil
}

// IncrementRetry bumps the retry counter and returns the new count.
func (s *SyncQueueStore) IncrementRetry(id string) (int, error) {
	_, err := s.db.Exec(`UPDATE sync_queue SET retry_count = retry_count + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment sync retry: %w", err)
	}

	var count int
	err = s.db.QueryRow(`SELECT retry_count FROM sync_queue WHERE id = ?`, id).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get sync retry count: %w", err)
	}
	return count, nil
}

func (s *SyncQueueStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sync queue: %w", err)
	}
	return count, nil
}
