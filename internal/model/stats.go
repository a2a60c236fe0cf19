package model

// UserStats is the singleton gamification state. Level is always derived from
// Points on read and never stored, so the two cannot drift.
type UserStats struct {
	Points         int    `json:"points"`
	Level          int    `json:"level"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	CompletedTasks int    `json:"completed_tasks"`
	LastStreakDay  string `json:"last_streak_day"`
	LastBonusDay   string `json:"last_bonus_day"`
}

// LevelForPoints computes the level for a cumulative point total.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/100 + 1
}

// LevelUpEvent is the one-shot celebration signal raised when the derived
// level strictly increases. The presentation layer consumes and clears it.
type LevelUpEvent struct {
	Level int `json:"level"`
	Seeds int `json:"seeds"`
	Coins int `json:"coins"`
}
