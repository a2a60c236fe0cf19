package store

import (
	"testing"
	"time"

	"github.com/sprouthq/sprout/internal/model"
)

func TestRewardCreateAndGet(t *testing.T) {
	s := NewRewardStore(openTestDB(t))

	created, err := s.Create(&model.Reward{
		ID:       "r1",
		Type:     model.RewardTaskComplete,
		Title:    "Task completed",
		Amount:   10,
		Currency: model.CurrencySeeds,
		Metadata: map[string]string{"task_id": "42"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Claimed {
		t.Error("new reward should be unclaimed")
	}
	if created.Metadata["task_id"] != "42" {
		t.Errorf("metadata = %v, want task_id 42", created.Metadata)
	}

	missing, err := s.GetByID("nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("missing reward should be nil")
	}
}

func TestMarkClaimedOnce(t *testing.T) {
	s := NewRewardStore(openTestDB(t))

	s.Create(&model.Reward{ID: "r1", Type: model.RewardEvent, Title: "x", Amount: 5, Currency: model.CurrencySeeds})

	now := time.Now()
	won, err := s.MarkClaimed("r1", now)
	if err != nil || !won {
		t.Fatalf("first claim = %v, %v; want won", won, err)
	}

	won, err = s.MarkClaimed("r1", now)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if won {
		t.Error("second claim must lose the claimed transition")
	}

	won, err = s.MarkClaimed("ghost", now)
	if err != nil {
		t.Fatalf("claim missing: %v", err)
	}
	if won {
		t.Error("claiming a missing reward must not win")
	}
}

func TestDeleteExpired(t *testing.T) {
	s := NewRewardStore(openTestDB(t))

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	s.Create(&model.Reward{ID: "old", Type: model.RewardDailyBonus, Title: "old", Amount: 1, Currency: model.CurrencySeeds, ExpiresAt: &past})
	s.Create(&model.Reward{ID: "new", Type: model.RewardDailyBonus, Title: "new", Amount: 1, Currency: model.CurrencySeeds, ExpiresAt: &future})
	s.Create(&model.Reward{ID: "forever", Type: model.RewardEvent, Title: "f", Amount: 1, Currency: model.CurrencySeeds})

	// A claimed reward is history, not inventory; expiry must not touch it.
	s.Create(&model.Reward{ID: "claimed-old", Type: model.RewardDailyBonus, Title: "c", Amount: 1, Currency: model.CurrencySeeds, ExpiresAt: &past})
	s.MarkClaimed("claimed-old", time.Now())

	n, err := s.DeleteExpired(time.Now())
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if r, _ := s.GetByID("claimed-old"); r == nil {
		t.Error("claimed reward must survive expiry pruning")
	}
}

func TestRewardedTaskIndex(t *testing.T) {
	s := NewRewardStore(openTestDB(t))

	if err := s.CreateRewardedTask(7, 15, "r1"); err != nil {
		t.Fatalf("create index entry: %v", err)
	}

	rt, err := s.GetRewardedTask(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rt == nil || rt.Points != 15 || rt.RewardID != "r1" {
		t.Errorf("entry = %+v, want points 15 reward r1", rt)
	}

	if err := s.DeleteRewardedTask(7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rt, _ = s.GetRewardedTask(7)
	if rt != nil {
		t.Error("entry should be gone")
	}
}

func TestBalanceAndBadges(t *testing.T) {
	s := NewRewardStore(openTestDB(t))

	if err := s.AddToBalance(model.CurrencySeeds, 100); err != nil {
		t.Fatalf("add seeds: %v", err)
	}
	if err := s.AddToBalance(model.CurrencyCoins, 25); err != nil {
		t.Fatalf("add coins: %v", err)
	}
	if err := s.AddToBalance("gems", 5); err == nil {
		t.Error("unknown currency should be rejected")
	}

	s.AddBadge("starter")
	s.AddBadge("starter") // duplicate is a no-op

	b, err := s.GetBalance()
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if b.Seeds != 100 || b.Coins != 25 {
		t.Errorf("balance = %+v, want 100 seeds / 25 coins", b)
	}
	if len(b.Badges) != 1 {
		t.Errorf("badges = %v, want one", b.Badges)
	}
}
