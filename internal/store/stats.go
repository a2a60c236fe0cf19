package store

import (
	"database/sql"
	"fmt"

	"github.com/sprouthq/sprout/internal/model"
)

// StatsStore persists the singleton user_stats row. Level is intentionally
// not a column; it is derived from points on every read.
type StatsStore struct {
	db *sql.DB
}

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Get() (*model.UserStats, error) {
	var st model.UserStats
	err := s.db.QueryRow(
		`SELECT points, current_streak, longest_streak, completed_tasks, last_streak_day, last_bonus_day
		 FROM user_stats WHERE id = 1`,
	).Scan(&st.Points, &st.CurrentStreak, &st.LongestStreak, &st.CompletedTasks, &st.LastStreakDay, &st.LastBonusDay)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	st.Level = model.LevelForPoints(st.Points)
	return &st, nil
}

func (s *StatsStore) SetPoints(points int) error {
	if points < 0 {
		points = 0
	}
	_, err := s.db.Exec(`UPDATE user_stats SET points = ? WHERE id = 1`, points)
	if err != nil {
		return fmt.Errorf("set points: %w", err)
	}
	return nil
}

func (s *StatsStore) SetStreak(current, longest int, lastStreakDay string) error {
	_, err := s.db.Exec(
		`UPDATE user_stats SET current_streak = ?, longest_streak = ?, last_streak_day = ? WHERE id = 1`,
		current, longest, lastStreakDay,
	)
	if err != nil {
		return fmt.Errorf("set streak: %w", err)
	}
	return nil
}

func (s *StatsStore) AddCompletedTasks(delta int) error {
	_, err := s.db.Exec(
		`UPDATE user_stats SET completed_tasks = MAX(completed_tasks + ?, 0) WHERE id = 1`,
		delta,
	)
	if err != nil {
		return fmt.Errorf("add completed tasks: %w", err)
	}
	return nil
}

func (s *StatsStore) SetLastBonusDay(day string) error {
	_, err := s.db.Exec(`UPDATE user_stats SET last_bonus_day = ? WHERE id = 1`, day)
	if err != nil {
		return fmt.Errorf("set last bonus day: %w", err)
	}
	return nil
}
