package statsintegrationtests

import (
	"context"
	"testing"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/YuTeChang/VibeBadminton-sub000/integration_tests/testutils"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/uptrace/bun"
)

type TestDeps struct {
	Ctx     context.Context
	DB      *statsdb.Impl
	BunDB   *bun.DB
	Service *statsservice.StatsService
	Gen     *testutils.TestDataGenerator
}

// SetupTestStatsService returns a service over a clean database. It has no
// queue, so historical edits are reported but never scheduled.
func SetupTestStatsService(t *testing.T) TestDeps {
	t.Helper()

	env := testutils.GetOrCreateTestEnv(t)
	env.Reset(t)

	obs := observability.NewNoop()
	repo := statsdb.NewRepository(env.DB)
	service := statsservice.NewStatsService(repo, nil, nil, obs.Logger, obs.Metrics, obs.Tracer, env.DB)

	gen := testutils.NewTestDataGenerator()
	t.Logf("data generator seed: %d", gen.Seed())

	return TestDeps{
		Ctx:     env.Ctx,
		DB:      repo,
		BunDB:   env.DB,
		Service: service,
		Gen:     gen,
	}
}
