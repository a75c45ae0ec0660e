//go:build integration

// Package integration runs the screening stack against real Tika and Redis
// containers.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/sift/internal/adapter/ai/stub"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/sift/internal/app"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/screening"
	"github.com/fairyhunter13/sift/internal/usecase"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port nat.Port) string {
	t.Helper()
	ctx := context.Background()
	req.ExposedPorts = []string{string(port)}
	req.HostConfigModifier = func(hc *container.HostConfig) { hc.AutoRemove = true }
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return host + ":" + mapped.Port()
}

func TestScreening_WithTikaAndRedis(t *testing.T) {
	ctx := context.Background()

	tikaAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:      "apache/tika:2.9.0.0",
		WaitingFor: wait.ForHTTP("/version").WithPort("9998/tcp").WithStartupTimeout(90 * time.Second),
	}, "9998/tcp")
	redisAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:      "redis:7",
		WaitingFor: wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379/tcp")

	cfg := config.Config{
		AIProvider:        config.ProviderStub,
		RedisURL:          "redis://" + redisAddr,
		AIRateLimitPerMin: 600,
	}
	limiter, rdb, err := app.NewRedisLimiter(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	tikaClient := tika.New("http://" + tikaAddr)
	ready := app.Readiness{DB: tikaClient, Kafka: tikaClient, Tika: tikaClient, Redis: rdb}
	for _, c := range ready.Checks() {
		assert.NoError(t, c.Check(ctx), c.Name)
	}

	ok, _, err := limiter.Allow(ctx, "ai:gemini", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	pipeline, err := screening.NewPipeline(stub.New())
	require.NoError(t, err)
	svc := usecase.NewScreeningService(nil, nil, nil, textextractor.New(nil, tikaClient), pipeline)

	job := "Backend Engineer. Required: Go, PostgreSQL, Kubernetes. 3+ years of experience."
	reports, err := svc.ScreenDocuments(ctx, job, []domain.ResumeDocument{
		{Name: "jane.txt", Data: []byte("Jane Doe\nGo engineer, 5 years with PostgreSQL and Kubernetes.")},
	}, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].FailedStage)
	assert.True(t, reports[0].Result.Recommendation.Valid())
}
