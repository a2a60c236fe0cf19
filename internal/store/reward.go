package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sprouthq/sprout/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var claimed int
	var metadata string
	var claimedAt, expiresAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.Type, &r.Title, &r.Description, &r.Amount, &r.Currency,
		&metadata, &claimed, &claimedAt, &expiresAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Claimed = claimed != 0
	if claimedAt.Valid {
		c := claimedAt.Time
		r.ClaimedAt = &c
	}
	if expiresAt.Valid {
		e := expiresAt.Time
		r.ExpiresAt = &e
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode reward metadata: %w", err)
		}
	}
	return &r, nil
}

const rewardCols = `id, type, title, description, amount, currency, metadata, claimed, claimed_at, expires_at, created_at`

func (s *RewardStore) Create(r *model.Reward) (*model.Reward, error) {
	metadata := "{}"
	if len(r.Metadata) > 0 {
		data, err := json.Marshal(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode reward metadata: %w", err)
		}
		metadata = string(data)
	}

	var expiresAt sql.NullTime
	if r.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: r.ExpiresAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO rewards (id, type, title, description, amount, currency, metadata, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.Title, r.Description, r.Amount, r.Currency, metadata, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	return s.GetByID(r.ID)
}

func (s *RewardStore) GetByID(id string) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, unclaimed first, newest first within each group.
func (s *RewardStore) List() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards ORDER BY claimed ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()
	return collectRewards(rows)
}

// ListUnclaimed returns unclaimed rewards, oldest first.
func (s *RewardStore) ListUnclaimed() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards WHERE claimed = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list unclaimed rewards: %w", err)
	}
	defer rows.Close()
	return collectRewards(rows)
}

func collectRewards(rows *sql.Rows) ([]model.Reward, error) {
	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// MarkClaimed flips claimed from 0 to 1 and reports whether this call won the
// transition. A false return means the reward was missing or already claimed,
// which makes concurrent claims on one id safe.
func (s *RewardStore) MarkClaimed(id string, claimedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rewards SET claimed = 1, claimed_at = ? WHERE id = ? AND claimed = 0`,
		claimedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark reward claimed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *RewardStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// DeleteExpired removes unclaimed rewards whose expiry has passed.
func (s *RewardStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM rewards WHERE claimed = 0 AND expires_at IS NOT NULL AND expires_at < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired rewards: %w", err)
	}
	return result.RowsAffected()
}

// --- Rewarded-task index methods ---

// GetRewardedTask returns the index entry for a task, or nil if the task has
// never produced a completion award.
func (s *RewardStore) GetRewardedTask(taskID int64) (*model.RewardedTask, error) {
	var rt model.RewardedTask
	err := s.db.QueryRow(
		`SELECT task_id, points, reward_id, created_at FROM rewarded_tasks WHERE task_id = ?`,
		taskID,
	).Scan(&rt.TaskID, &rt.Points, &rt.RewardID, &rt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rewarded task: %w", err)
	}
	return &rt, nil
}

func (s *RewardStore) CreateRewardedTask(taskID int64, points int, rewardID string) error {
	_, err := s.db.Exec(
		`INSERT INTO rewarded_tasks (task_id, points, reward_id) VALUES (?, ?, ?)`,
		taskID, points, rewardID,
	)
	if err != nil {
		return fmt.Errorf("insert rewarded task: %w", err)
	}
	return nil
}

func (s *RewardStore) DeleteRewardedTask(taskID int64) error {
	_, err := s.db.Exec(`DELETE FROM rewarded_tasks WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("delete rewarded task: %w", err)
	}
	return nil
}

// --- Balance methods ---

func (s *RewardStore) GetBalance() (*model.Balance, error) {
	var b model.Balance
	err := s.db.QueryRow(`SELECT seeds, coins, xp FROM balance WHERE id = 1`).Scan(&b.Seeds, &b.Coins, &b.XP)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	rows, err := s.db.Query(`SELECT badge_id FROM badges ORDER BY earned_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	b.Badges = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.Badges = append(b.Badges, id)
	}
	return &b, rows.Err()
}

// AddToBalance credits amount to the given currency column.
func (s *RewardStore) AddToBalance(currency string, amount int) error {
	var column string
	switch currency {
	case model.CurrencySeeds:
		column = "seeds"
	case model.CurrencyCoins:
		column = "coins"
	case model.CurrencyXP:
		column = "xp"
	default:
		return fmt.Errorf("unknown balance currency %q", currency)
	}

	_, err := s.db.Exec(`UPDATE balance SET `+column+` = `+column+` + ? WHERE id = 1`, amount)
	if err != nil {
		return fmt.Errorf("add to balance: %w", err)
	}
	return nil
}

// AddBadge adds a badge to the earned set. Adding a held badge is a no-op.
func (s *RewardStore) AddBadge(badgeID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO badges (badge_id) VALUES (?)`, badgeID)
	if err != nil {
		return fmt.Errorf("add badge: %w", err)
	}
	return nil
}
