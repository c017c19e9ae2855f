package service

import (
	"time"

	"github.com/pulseai/backend/internal/models"
)

const DefaultPredictionTTL = 300000 * time.Millisecond

type Decision int

const (
	DecisionPredict Decision = iota
	DecisionReuse
)

func (d Decision) String() string {
	if d == DecisionReuse {
		return "reuse"
	}
	return "predict"
}

// CacheGate decides whether a stored prediction is fresh enough to reuse. It holds no
// locks; two callers racing on the same employee can both see a stale entry.
type CacheGate struct {
	TTL time.Duration
	Now func() time.Time
}

func NewCacheGate(ttl time.Duration) CacheGate {
	if ttl <= 0 {
		ttl = DefaultPredictionTTL
	}
	return CacheGate{TTL: ttl, Now: time.Now}
}

func (g CacheGate) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g CacheGate) Decide(latest *models.MlPrediction) Decision {
	if latest == nil {
		return DecisionPredict
	}
	if g.now().Sub(latest.CreatedAt) < g.TTL {
		return DecisionReuse
	}
	return DecisionPredict
}
