package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pulseai/backend/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PredictionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestStoreAndLatest(t *testing.T) {
	c, mr := newTestCache(t, 5*time.Minute)
	ctx := context.Background()

	p := models.MlPrediction{
		ID:          7,
		EmployeeID:  42,
		BurnoutRisk: "High",
		TopFeatures: models.TopFeatures{Burnout: []string{"avg_workload"}},
		CreatedAt:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	if err := c.Store(ctx, p); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, ok, err := c.Latest(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.ID != 7 || got.BurnoutRisk != "High" || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("unexpected prediction %+v", got)
	}

	if ttl := mr.TTL(LatestKey(42)); ttl != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", ttl)
	}

	mr.FastForward(6 * time.Minute)
	if _, ok, _ := c.Latest(ctx, 42); ok {
		t.Fatalf("expected pointer to expire with the ttl")
	}
}

func TestLatestMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	_, ok, err := c.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestPublish(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	sub := c.client.Subscribe(ctx, PredictionsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := c.Publish(ctx, models.MlPrediction{EmployeeID: 3, BurnoutRisk: "Low"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != PredictionsChannel {
			t.Fatalf("unexpected channel %s", msg.Channel)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received, %d subscribers", len(mr.PubSubChannels("")))
	}
}

func TestNilClientIsNoop(t *testing.T) {
	c := New(nil, time.Minute)
	ctx := context.Background()
	if c.Available() {
		t.Fatalf("expected unavailable cache")
	}
	if err := c.Store(ctx, models.MlPrediction{EmployeeID: 1}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := c.Publish(ctx, models.MlPrediction{EmployeeID: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, ok, err := c.Latest(ctx, 1); ok || err != nil {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
}

func TestConnectEmptyURL(t *testing.T) {
	c, err := Connect(context.Background(), "", time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if c.Available() {
		t.Fatalf("expected disabled cache for empty url")
	}
}
