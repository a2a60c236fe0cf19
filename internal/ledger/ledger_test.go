package ledger

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sprouthq/sprout/internal/database"
	"github.com/sprouthq/sprout/internal/model"
	"github.com/sprouthq/sprout/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.SyncQueueStore) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := store.NewSyncQueueStore(db)
	l := New(store.NewRewardStore(db), store.NewStatsStore(db), queue, nil, logger)
	return l, queue
}

func TestAwardTaskCompletion(t *testing.T) {
	l, _ := newTestLedger(t)

	reward, err := l.AwardTaskCompletion(1, model.PriorityHigh)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if reward == nil {
		t.Fatal("expected a reward")
	}
	if reward.Amount != 15 || reward.Currency != model.CurrencySeeds {
		t.Errorf("reward = %d %s, want 15 seeds", reward.Amount, reward.Currency)
	}

	st, err := l.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Points != 15 {
		t.Errorf("points = %d, want 15", st.Points)
	}
	if st.CompletedTasks != 1 {
		t.Errorf("completed tasks = %d, want 1", st.CompletedTasks)
	}
}

func TestAwardTaskCompletionIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)

	if _, err := l.AwardTaskCompletion(1, model.PriorityMedium); err != nil {
		t.Fatalf("first award: %v", err)
	}

	// Completing the same task again must not award twice, even at a
	// different priority.
	again, err := l.AwardTaskCompletion(1, model.PriorityUrgent)
	if err != nil {
		t.Fatalf("second award: %v", err)
	}
	if again != nil {
		t.Fatal("second award should be a no-op")
	}

	st, _ := l.Stats()
	if st.Points != 10 {
		t.Errorf("points = %d, want 10", st.Points)
	}
	if st.CompletedTasks != 1 {
		t.Errorf("completed tasks = %d, want 1", st.CompletedTasks)
	}
}

func TestLevelUpMintsScaledRewards(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.IncrementPoints(95); err != nil {
		t.Fatalf("seed points: %v", err)
	}
	if c := l.ConsumeCelebration(); c != nil {
		t.Fatalf("unexpected celebration at level 1: %+v", c)
	}

	if _, err := l.AwardTaskCompletion(7, model.PriorityMedium); err != nil {
		t.Fatalf("award: %v", err)
	}

	st, _ := l.Stats()
	if st.Points != 105 || st.Level != 2 {
		t.Fatalf("points/level = %d/%d, want 105/2", st.Points, st.Level)
	}

	c := l.ConsumeCelebration()
	if c == nil {
		t.Fatal("expected level-up celebration")
	}
	if c.Level != 2 || c.Seeds != 150 || c.Coins != 37 {
		t.Errorf("celebration = %+v, want level 2, 150 seeds, 37 coins", c)
	}
	if l.ConsumeCelebration() != nil {
		t.Error("celebration should be consumed exactly once")
	}

	rewards, _ := l.Rewards()
	var seeds, coins int
	for _, r := range rewards {
		if r.Type != model.RewardLevelUp {
			continue
		}
		switch r.Currency {
		case model.CurrencySeeds:
			seeds = r.Amount
		case model.CurrencyCoins:
			coins = r.Amount
		}
	}
	if seeds != 150 || coins != 37 {
		t.Errorf("level-up rewards = %d seeds / %d coins, want 150/37", seeds, coins)
	}
}

func TestLevelDownDoesNotMint(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.IncrementPoints(105); err != nil {
		t.Fatalf("increment: %v", err)
	}
	l.ConsumeCelebration()

	if err := l.DecrementPoints(50); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := l.IncrementPoints(50); err != nil {
		t.Fatalf("re-increment: %v", err)
	}

	// Crossing the same threshold again after a level-down still mints;
	// only downward crossings are silent.
	if c := l.ConsumeCelebration(); c == nil || c.Level != 2 {
		t.Errorf("celebration after re-crossing = %+v, want level 2", c)
	}
}

func TestDecrementPointsFloorsAtZero(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.IncrementPoints(5); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := l.DecrementPoints(20); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	st, _ := l.Stats()
	if st.Points != 0 || st.Level != 1 {
		t.Errorf("points/level = %d/%d, want 0/1", st.Points, st.Level)
	}
}

func TestReverseTaskCompletion(t *testing.T) {
	l, _ := newTestLedger(t)

	reward, err := l.AwardTaskCompletion(3, model.PriorityUrgent)
	if err != nil {
		t.Fatalf("award: %v", err)
	}

	reversed, err := l.ReverseTaskCompletion(3)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if !reversed {
		t.Fatal("expected reversal")
	}

	st, _ := l.Stats()
	if st.Points != 0 {
		t.Errorf("points = %d, want 0", st.Points)
	}
	if st.CompletedTasks != 0 {
		t.Errorf("completed tasks = %d, want 0", st.CompletedTasks)
	}

	// The unclaimed completion reward is withdrawn with the reversal.
	if got, _ := l.rewards.GetByID(reward.ID); got != nil {
		t.Error("unclaimed completion reward should be removed")
	}

	// A second reversal finds no index entry and does nothing.
	reversed, err = l.ReverseTaskCompletion(3)
	if err != nil {
		t.Fatalf("second reverse: %v", err)
	}
	if reversed {
		t.Error("second reversal should be a no-op")
	}
}

func TestReverseKeepsClaimedBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	reward, err := l.AwardTaskCompletion(4, model.PriorityMedium)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if ok, err := l.ClaimReward(reward.ID); err != nil || !ok {
		t.Fatalf("claim = %v, %v", ok, err)
	}

	if _, err := l.ReverseTaskCompletion(4); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	// Claims are final: the seeds stay in the balance even though the
	// points were deducted.
	b, _ := l.Balance()
	if b.Seeds != 10 {
		t.Errorf("seeds = %d, want 10", b.Seeds)
	}
	st, _ := l.Stats()
	if st.Points != 0 {
		t.Errorf("points = %d, want 0", st.Points)
	}
}

func TestClaimRewardOnce(t *testing.T) {
	l, _ := newTestLedger(t)

	reward, err := l.GrantEventReward("Welcome", "", 40, model.CurrencySeeds, nil, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err := l.ClaimReward(reward.ID)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}

	ok, err = l.ClaimReward(reward.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Error("second claim should be a no-op")
	}

	b, _ := l.Balance()
	if b.Seeds != 40 {
		t.Errorf("seeds = %d, want 40", b.Seeds)
	}
}

func TestClaimUnknownReward(t *testing.T) {
	l, _ := newTestLedger(t)

	ok, err := l.ClaimReward("no-such-reward")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ok {
		t.Error("claiming an unknown id should be a no-op")
	}
}

func TestClaimExpiredRewardDropsIt(t *testing.T) {
	l, _ := newTestLedger(t)

	past := time.Now().Add(-time.Hour)
	reward, err := l.GrantEventReward("Old bonus", "", 25, model.CurrencySeeds, nil, &past)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err := l.ClaimReward(reward.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ok {
		t.Error("expired reward must not be claimable")
	}

	if got, _ := l.rewards.GetByID(reward.ID); got != nil {
		t.Error("expired reward should be dropped on claim attempt")
	}
	b, _ := l.Balance()
	if b.Seeds != 0 {
		t.Errorf("seeds = %d, want 0", b.Seeds)
	}
}

func TestClaimBadgeReward(t *testing.T) {
	l, _ := newTestLedger(t)

	reward, err := l.GrantEventReward("Early bird", "", 1, model.CurrencyBadge,
		map[string]string{"badge_id": "early-bird"}, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if ok, err := l.ClaimReward(reward.ID); err != nil || !ok {
		t.Fatalf("claim = %v, %v", ok, err)
	}

	b, _ := l.Balance()
	if len(b.Badges) != 1 || b.Badges[0] != "early-bird" {
		t.Errorf("badges = %v, want [early-bird]", b.Badges)
	}
	if b.Seeds != 0 || b.Coins != 0 {
		t.Errorf("badge claim must not touch currency: %+v", b)
	}
}

func TestClaimAll(t *testing.T) {
	l, _ := newTestLedger(t)

	past := time.Now().Add(-time.Minute)
	if _, err := l.GrantEventReward("A", "", 10, model.CurrencySeeds, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := l.GrantEventReward("B", "", 5, model.CurrencyCoins, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := l.GrantEventReward("Stale", "", 99, model.CurrencySeeds, nil, &past); err != nil {
		t.Fatal(err)
	}

	n, err := l.ClaimAll()
	if err != nil {
		t.Fatalf("claim all: %v", err)
	}
	if n != 2 {
		t.Errorf("claimed = %d, want 2", n)
	}

	b, _ := l.Balance()
	if b.Seeds != 10 || b.Coins != 5 {
		t.Errorf("balance = %d seeds / %d coins, want 10/5", b.Seeds, b.Coins)
	}
}

func TestStreakMilestone(t *testing.T) {
	l, _ := newTestLedger(t)

	for i := 0; i < 7; i++ {
		if err := l.RecordStreakDay(); err != nil {
			t.Fatalf("record day %d: %v", i+1, err)
		}
	}

	st, _ := l.Stats()
	if st.CurrentStreak != 7 || st.LongestStreak != 7 {
		t.Fatalf("streak = %d/%d, want 7/7", st.CurrentStreak, st.LongestStreak)
	}

	rewards, _ := l.Rewards()
	var seeds, coins, count int
	for _, r := range rewards {
		if r.Type != model.RewardStreakBonus {
			continue
		}
		count++
		switch r.Currency {
		case model.CurrencySeeds:
			seeds = r.Amount
		case model.CurrencyCoins:
			coins = r.Amount
		}
	}
	if count != 2 {
		t.Fatalf("streak rewards = %d, want exactly one pair", count)
	}
	if seeds != 100 || coins != 20 {
		t.Errorf("milestone pair = %d seeds / %d coins, want 100/20", seeds, coins)
	}
}

func TestResetStreakKeepsLongest(t *testing.T) {
	l, _ := newTestLedger(t)

	for i := 0; i < 3; i++ {
		if err := l.RecordStreakDay(); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.ResetStreak(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	st, _ := l.Stats()
	if st.CurrentStreak != 0 {
		t.Errorf("current streak = %d, want 0", st.CurrentStreak)
	}
	if st.LongestStreak != 3 {
		t.Errorf("longest streak = %d, want 3", st.LongestStreak)
	}
}

func TestMarkActiveDay(t *testing.T) {
	l, _ := newTestLedger(t)

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := l.MarkActiveDay(day1); err != nil {
		t.Fatal(err)
	}
	// Same day again, even hours later, does not extend.
	if err := l.MarkActiveDay(day1.Add(8 * time.Hour)); err != nil {
		t.Fatal(err)
	}
	st, _ := l.Stats()
	if st.CurrentStreak != 1 {
		t.Fatalf("streak after day 1 = %d, want 1", st.CurrentStreak)
	}

	// Next day continues.
	if err := l.MarkActiveDay(day1.AddDate(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	st, _ = l.Stats()
	if st.CurrentStreak != 2 {
		t.Fatalf("streak after day 2 = %d, want 2", st.CurrentStreak)
	}

	// A gap resets to one, not zero: today still counts.
	if err := l.MarkActiveDay(day1.AddDate(0, 0, 5)); err != nil {
		t.Fatal(err)
	}
	st, _ = l.Stats()
	if st.CurrentStreak != 1 {
		t.Errorf("streak after gap = %d, want 1", st.CurrentStreak)
	}
	if st.LongestStreak != 2 {
		t.Errorf("longest streak = %d, want 2", st.LongestStreak)
	}
}

func TestGrantDailyBonusOncePerDay(t *testing.T) {
	l, _ := newTestLedger(t)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := l.GrantDailyBonus(now)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if first == nil {
		t.Fatal("expected a daily bonus")
	}
	if first.ExpiresAt == nil {
		t.Error("daily bonus should expire")
	}

	second, err := l.GrantDailyBonus(now.Add(6 * time.Hour))
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if second != nil {
		t.Error("same-day bonus should be a no-op")
	}

	third, err := l.GrantDailyBonus(now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("next-day grant: %v", err)
	}
	if third == nil {
		t.Error("next day should grant again")
	}
}

func TestMintAndClaimEnqueueSyncItems(t *testing.T) {
	l, queue := newTestLedger(t)

	reward, err := l.GrantEventReward("Sync me", "", 5, model.CurrencySeeds, nil, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := l.ClaimReward(reward.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	items, err := queue.List()
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("queue length = %d, want 2", len(items))
	}
	if items[0].Action != model.SyncActionCreate || items[1].Action != model.SyncActionClaim {
		t.Errorf("queue actions = %s, %s; want create then claim", items[0].Action, items[1].Action)
	}
	for _, item := range items {
		if item.RewardID != reward.ID {
			t.Errorf("item %s reward_id = %s, want %s", item.ID, item.RewardID, reward.ID)
		}
	}
}

func TestPruneExpired(t *testing.T) {
	l, _ := newTestLedger(t)

	past := time.Now().Add(-time.Hour)
	if _, err := l.GrantEventReward("Stale", "", 10, model.CurrencySeeds, nil, &past); err != nil {
		t.Fatal(err)
	}
	if _, err := l.GrantEventReward("Fresh", "", 10, model.CurrencySeeds, nil, nil); err != nil {
		t.Fatal(err)
	}

	if err := l.PruneExpired(time.Now()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	rewards, _ := l.Rewards()
	if len(rewards) != 1 || rewards[0].Title != "Fresh" {
		t.Errorf("rewards after prune = %v, want only Fresh", rewards)
	}
}
