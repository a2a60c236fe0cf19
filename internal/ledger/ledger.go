package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sprouthq/sprout/internal/model"
	"github.com/sprouthq/sprout/internal/store"
	ws "github.com/sprouthq/sprout/internal/websocket"
)

// Points granted per completed task, by priority.
var pointsByPriority = map[model.Priority]int{
	model.PriorityLow:    5,
	model.PriorityMedium: 10,
	model.PriorityHigh:   15,
	model.PriorityUrgent: 20,
}

// PointsForPriority is the single source for award amounts; award, reversal
// and display all go through it.
func PointsForPriority(p model.Priority) int {
	if pts, ok := pointsByPriority[p]; ok {
		return pts
	}
	return pointsByPriority[model.PriorityMedium]
}

// Level-up reward scaling: base * 1.5^(level-1), floored.
const (
	levelUpBaseSeeds  = 100
	levelUpBaseCoins  = 25
	levelUpMultiplier = 1.5
)

type milestoneReward struct {
	Seeds int
	Coins int
}

// Streak milestones each mint one seeds and one coins reward, once per
// crossing.
var streakMilestones = map[int]milestoneReward{
	7:   {Seeds: 100, Coins: 20},
	14:  {Seeds: 250, Coins: 50},
	30:  {Seeds: 600, Coins: 120},
	60:  {Seeds: 1500, Coins: 300},
	100: {Seeds: 3000, Coins: 600},
}

const dailyBonusSeeds = 15

// Ledger is the single owner of points, streaks, the reward inventory, and
// the balance. Every mutation serializes through one mutex so the
// at-most-once-award and claim-once invariants hold on a multi-threaded host.
// The backing stores are the durable state; the ledger holds no caches.
type Ledger struct {
	mu      sync.Mutex
	rewards *store.RewardStore
	stats   *store.StatsStore
	queue   *store.SyncQueueStore
	hub     *ws.Hub
	logger  *slog.Logger
	now     func() time.Time

	celebration *model.LevelUpEvent
}

func New(rewards *store.RewardStore, stats *store.StatsStore, queue *store.SyncQueueStore, hub *ws.Hub, logger *slog.Logger) *Ledger {
	return &Ledger{
		rewards: rewards,
		stats:   stats,
		queue:   queue,
		hub:     hub,
		logger:  logger,
		now:     time.Now,
	}
}

// AwardTaskCompletion grants the completion reward for a task. If the task
// already produced one, this is a no-op returning nil — the rewarded-task
// index makes the award idempotent. The awarded amount is recorded on the
// index entry so a later reversal deducts exactly what was granted.
func (l *Ledger) AwardTaskCompletion(taskID int64, priority model.Priority) (*model.Reward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.rewards.GetRewardedTask(taskID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	points := PointsForPriority(priority)
	reward, err := l.mint(&model.Reward{
		ID:       uuid.NewString(),
		Type:     model.RewardTaskComplete,
		Title:    "Task completed",
		Amount:   points,
		Currency: model.CurrencySeeds,
		Metadata: map[string]string{"task_id": fmt.Sprintf("%d", taskID)},
	})
	if err != nil {
		return nil, err
	}

	if err := l.rewards.CreateRewardedTask(taskID, points, reward.ID); err != nil {
		return nil, err
	}
	if err := l.stats.AddCompletedTasks(1); err != nil {
		return nil, err
	}
	if err := l.incrementPoints(points); err != nil {
		return nil, err
	}

	l.broadcast(ws.EventMessage("reward", "created", map[string]any{"id": reward.ID, "amount": points}))
	return reward, nil
}

// ReverseTaskCompletion undoes a prior award when a rewarded task is
// uncompleted, deleted, or bulk-cleared. It only acts when the task is in
// the rewarded index, deducts the stored award amount, and removes the
// unclaimed completion reward so it cannot be claimed afterwards. A claimed
// reward stays claimed; claims are final.
func (l *Ledger) ReverseTaskCompletion(taskID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rt, err := l.rewards.GetRewardedTask(taskID)
	if err != nil {
		return false, err
	}
	if rt == nil {
		return false, nil
	}

	if err := l.rewards.DeleteRewardedTask(taskID); err != nil {
		return false, err
	}

	reward, err := l.rewards.GetByID(rt.RewardID)
	if err != nil {
		return false, err
	}
	if reward != nil && !reward.Claimed {
		if err := l.rewards.Delete(reward.ID); err != nil {
			return false, err
		}
	}

	if err := l.stats.AddCompletedTasks(-1); err != nil {
		return false, err
	}
	if err := l.decrementPoints(rt.Points); err != nil {
		return false, err
	}

	l.broadcast(ws.EventMessage("reward", "reversed", map[string]any{"task_id": taskID, "amount": rt.Points}))
	return true, nil
}

// IncrementPoints adds points and mints a level-up reward when the derived
// level strictly increases.
func (l *Ledger) IncrementPoints(amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.incrementPoints(amount)
}

// DecrementPoints removes points, flooring at zero. Level-downs never claw
// back a level-up reward: the celebration already happened.
func (l *Ledger) DecrementPoints(amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decrementPoints(amount)
}

func (l *Ledger) incrementPoints(amount int) error {
	if amount < 0 {
		return fmt.Errorf("increment by negative amount %d", amount)
	}

	st, err := l.stats.Get()
	if err != nil {
		return err
	}

	points := st.Points + amount
	if err := l.stats.SetPoints(points); err != nil {
		return err
	}

	oldLevel := model.LevelForPoints(st.Points)
	newLevel := model.LevelForPoints(points)
	if newLevel <= oldLevel {
		return nil
	}

	scale := math.Pow(levelUpMultiplier, float64(newLevel-1))
	seeds := int(math.Floor(levelUpBaseSeeds * scale))
	coins := int(math.Floor(levelUpBaseCoins * scale))

	_, err = l.mint(&model.Reward{
		ID:          uuid.NewString(),
		Type:        model.RewardLevelUp,
		Title:       fmt.Sprintf("Reached level %d", newLevel),
		Description: fmt.Sprintf("%d seeds and %d coins", seeds, coins),
		Amount:      seeds,
		Currency:    model.CurrencySeeds,
		Metadata:    map[string]string{"level": fmt.Sprintf("%d", newLevel)},
	})
	if err != nil {
		return err
	}
	_, err = l.mint(&model.Reward{
		ID:       uuid.NewString(),
		Type:     model.RewardLevelUp,
		Title:    fmt.Sprintf("Reached level %d", newLevel),
		Amount:   coins,
		Currency: model.CurrencyCoins,
		Metadata: map[string]string{"level": fmt.Sprintf("%d", newLevel)},
	})
	if err != nil {
		return err
	}

	l.celebration = &model.LevelUpEvent{Level: newLevel, Seeds: seeds, Coins: coins}
	l.broadcast(ws.Message{Type: "level_up", Extra: map[string]any{"level": newLevel, "seeds": seeds, "coins": coins}})
	return nil
}

func (l *Ledger) decrementPoints(amount int) error {
	if amount < 0 {
		return fmt.Errorf("decrement by negative amount %d", amount)
	}

	st, err := l.stats.Get()
	if err != nil {
		return err
	}

	points := st.Points - amount
	if points < 0 {
		points = 0
	}
	return l.stats.SetPoints(points)
}

// RecordStreakDay unconditionally extends the streak by one day and mints the
// milestone reward pair when the new streak length crosses a milestone.
// Day-of-activity guarding belongs to MarkActiveDay.
func (l *Ledger) RecordStreakDay() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.stats.Get()
	if err != nil {
		return err
	}
	return l.setStreak(st.CurrentStreak+1, st, st.LastStreakDay)
}

// ResetStreak zeroes the current streak. The longest streak is untouched.
func (l *Ledger) ResetStreak() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.stats.Get()
	if err != nil {
		return err
	}
	return l.stats.SetStreak(0, st.LongestStreak, st.LastStreakDay)
}

// MarkActiveDay records task activity for streak purposes: a no-op when
// today is already counted, a streak extension when yesterday was, and a
// reset to one after a gap.
func (l *Ledger) MarkActiveDay(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.stats.Get()
	if err != nil {
		return err
	}

	today := dayString(now)
	if st.LastStreakDay == today {
		return nil
	}

	current := 1
	if st.LastStreakDay == dayString(now.AddDate(0, 0, -1)) {
		current = st.CurrentStreak + 1
	}
	return l.setStreak(current, st, today)
}

func (l *Ledger) setStreak(current int, st *model.UserStats, lastDay string) error {
	longest := st.LongestStreak
	if current > longest {
		longest = current
	}
	if err := l.stats.SetStreak(current, longest, lastDay); err != nil {
		return err
	}

	m, ok := streakMilestones[current]
	if !ok {
		return nil
	}

	title := fmt.Sprintf("%d-day streak", current)
	if _, err := l.mint(&model.Reward{
		ID:       uuid.NewString(),
		Type:     model.RewardStreakBonus,
		Title:    title,
		Amount:   m.Seeds,
		Currency: model.CurrencySeeds,
		Metadata: map[string]string{"streak": fmt.Sprintf("%d", current)},
	}); err != nil {
		return err
	}
	if _, err := l.mint(&model.Reward{
		ID:       uuid.NewString(),
		Type:     model.RewardStreakBonus,
		Title:    title,
		Amount:   m.Coins,
		Currency: model.CurrencyCoins,
		Metadata: map[string]string{"streak": fmt.Sprintf("%d", current)},
	}); err != nil {
		return err
	}

	l.broadcast(ws.EventMessage("streak", "milestone", map[string]any{"days": current}))
	return nil
}

// GrantDailyBonus mints the daily login bonus at most once per day. The
// bonus expires after a week if left unclaimed.
func (l *Ledger) GrantDailyBonus(now time.Time) (*model.Reward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.stats.Get()
	if err != nil {
		return nil, err
	}

	today := dayString(now)
	if st.LastBonusDay == today {
		return nil, nil
	}

	expires := now.AddDate(0, 0, 7)
	reward, err := l.mint(&model.Reward{
		ID:        uuid.NewString(),
		Type:      model.RewardDailyBonus,
		Title:     "Daily bonus",
		Amount:    dailyBonusSeeds,
		Currency:  model.CurrencySeeds,
		ExpiresAt: &expires,
	})
	if err != nil {
		return nil, err
	}

	if err := l.stats.SetLastBonusDay(today); err != nil {
		return nil, err
	}
	return reward, nil
}

// GrantEventReward mints an ad-hoc event reward (badges included).
func (l *Ledger) GrantEventReward(title, description string, amount int, currency string, metadata map[string]string, expiresAt *time.Time) (*model.Reward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.mint(&model.Reward{
		ID:          uuid.NewString(),
		Type:        model.RewardEvent,
		Title:       title,
		Description: description,
		Amount:      amount,
		Currency:    currency,
		Metadata:    metadata,
		ExpiresAt:   expiresAt,
	})
}

// ClaimReward transfers a reward's amount into the balance and marks it
// claimed. Unknown and already-claimed ids are no-ops; an expired reward is
// dropped from the inventory instead of claimed. Returns whether the balance
// changed.
func (l *Ledger) ClaimReward(rewardID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claim(rewardID)
}

// ClaimAll claims every unclaimed, non-expired reward through the same
// per-reward path and returns how many were claimed.
func (l *Ledger) ClaimAll() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rewards, err := l.rewards.ListUnclaimed()
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, r := range rewards {
		ok, err := l.claim(r.ID)
		if err != nil {
			return claimed, err
		}
		if ok {
			claimed++
		}
	}
	return claimed, nil
}

func (l *Ledger) claim(rewardID string) (bool, error) {
	reward, err := l.rewards.GetByID(rewardID)
	if err != nil {
		return false, err
	}
	if reward == nil || reward.Claimed {
		return false, nil
	}

	now := l.now()
	if reward.Expired(now) {
		// Expired rewards can never be claimed; drop them.
		if err := l.rewards.Delete(reward.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	won, err := l.rewards.MarkClaimed(reward.ID, now)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	if reward.Currency == model.CurrencyBadge {
		badgeID := reward.Metadata["badge_id"]
		if badgeID == "" {
			badgeID = reward.ID
		}
		if err := l.rewards.AddBadge(badgeID); err != nil {
			return false, err
		}
	} else if err := l.rewards.AddToBalance(reward.Currency, reward.Amount); err != nil {
		return false, err
	}

	l.enqueue(model.SyncActionClaim, reward)
	l.broadcast(ws.EventMessage("reward", "claimed", map[string]any{"id": reward.ID}))
	return true, nil
}

// Stats returns the current user stats with the level derived from points.
func (l *Ledger) Stats() (*model.UserStats, error) {
	return l.stats.Get()
}

// Balance returns the durable currency totals and badge set.
func (l *Ledger) Balance() (*model.Balance, error) {
	return l.rewards.GetBalance()
}

// Rewards returns the full reward inventory.
func (l *Ledger) Rewards() ([]model.Reward, error) {
	return l.rewards.List()
}

// ConsumeCelebration returns the pending level-up celebration, if any, and
// clears it. One-shot by design.
func (l *Ledger) ConsumeCelebration() *model.LevelUpEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.celebration
	l.celebration = nil
	return c
}

// PruneExpired drops unclaimed rewards whose expiry has passed.
func (l *Ledger) PruneExpired(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.rewards.DeleteExpired(now)
	if err != nil {
		return err
	}
	if n > 0 {
		l.logger.Debug("pruned expired rewards", "count", n)
	}
	return nil
}

// mint creates a reward record and mirrors it into the sync queue.
func (l *Ledger) mint(r *model.Reward) (*model.Reward, error) {
	reward, err := l.rewards.Create(r)
	if err != nil {
		return nil, err
	}
	l.enqueue(model.SyncActionCreate, reward)
	return reward, nil
}

// enqueue mirrors a reward mutation into the offline queue. Queue failures
// are logged, never propagated: local state stays authoritative and remote
// sync is best-effort.
func (l *Ledger) enqueue(action string, reward *model.Reward) {
	payload, err := json.Marshal(reward)
	if err != nil {
		l.logger.Error("encode sync payload", "reward_id", reward.ID, "error", err)
		return
	}

	err = l.queue.Enqueue(&model.SyncItem{
		ID:       uuid.NewString(),
		Action:   action,
		RewardID: reward.ID,
		Payload:  string(payload),
	})
	if err != nil {
		l.logger.Error("enqueue sync item", "reward_id", reward.ID, "error", err)
	}
}

func (l *Ledger) broadcast(msg ws.Message) {
	if l.hub != nil {
		l.hub.Broadcast(msg)
	}
}

func dayString(t time.Time) string {
	return t.Format("2006-01-02")
}
