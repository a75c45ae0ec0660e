package app

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/sift/internal/adapter/httpserver"
)

// Pinger is anything that can report its own reachability.
type Pinger interface{ Ping(ctx context.Context) error }

// Readiness lists the dependencies checked by /readyz. Nil members are
// reported as not configured, except Redis which is optional.
type Readiness struct {
	DB    Pinger
	Kafka Pinger
	Tika  Pinger
	Redis redis.UniversalClient
}

// Checks returns the readiness checks in a stable order.
func (r Readiness) Checks() []httpserver.ReadinessCheck {
	checks := []httpserver.ReadinessCheck{
		{Name: "db", Check: ping(r.DB, "db")},
		{Name: "kafka", Check: ping(r.Kafka, "kafka")},
		{Name: "tika", Check: ping(r.Tika, "tika")},
	}
	if r.Redis != nil {
		rdb := r.Redis
		checks = append(checks, httpserver.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func ping(p Pinger, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.New(name + " not configured")
		}
		return p.Ping(ctx)
	}
}
