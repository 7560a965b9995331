package testutils

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	statsqueue "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/queue"
	statsmigrations "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories/migrations"
	"github.com/YuTeChang/VibeBadminton-sub000/config"
	"github.com/YuTeChang/VibeBadminton-sub000/db/bundb"
	"github.com/YuTeChang/VibeBadminton-sub000/integration_tests/containers"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/eventbus"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// StatsTables lists every table the stats module writes, for truncation between tests.
var StatsTables = []string{
	"applied_results",
	"rating_history",
	"partnership_matchups",
	"partnerships",
	"games",
	"session_players",
	"sessions",
	"group_players",
	"river_job",
}

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DBService     *bundb.DBService
	DB            *bun.DB
	EventBus      *eventbus.EventBus
	Config        *config.Config
	Logger        *slog.Logger
}

var (
	envOnce sync.Once
	env     *TestEnvironment
	envErr  error
)

// GetOrCreateTestEnv returns the package-wide environment, starting containers on
// first use. Tests are skipped under -short or when Docker is unavailable.
func GetOrCreateTestEnv(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	envOnce.Do(func() {
		env, envErr = NewTestEnvironment()
	})
	if envErr != nil {
		t.Skipf("integration environment unavailable: %v", envErr)
	}
	return env
}

// NewTestEnvironment creates a new test environment with Postgres and NATS containers
func NewTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())

	e := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := e.setupContainers(ctx); err != nil {
		e.Cleanup()
		return nil, err
	}
	return e, nil
}

func (e *TestEnvironment) setupContainers(ctx context.Context) error {
	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup postgres container: %w", err)
	}
	e.PgContainer = pgContainer

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup nats container: %w", err)
	}
	e.NatsContainer = natsContainer

	e.Config = &config.Config{
		Postgres: config.PostgresConfig{DSN: pgConnStr},
		NATS:     config.NATSConfig{URL: natsURL, StreamName: "STATS", DurablePrefix: "statsd-it"},
		Recalculation: config.RecalculationConfig{
			QueueWorkers:  2,
			RatePerMinute: 60,
			JobTimeout:    time.Minute,
		},
		Observability: config.ObservabilityConfig{Environment: "test"},
	}

	dbService, err := bundb.NewBunDBService(ctx, e.Config.Postgres, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to create DB service: %w", err)
	}
	e.DBService = dbService
	e.DB = dbService.GetDB()

	if err := runMigrations(ctx, e.DB, pgConnStr); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:           natsURL,
		StreamName:    e.Config.NATS.StreamName,
		DurablePrefix: e.Config.NATS.DurablePrefix,
		AckWait:       5 * time.Second,
	}, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to create EventBus: %w", err)
	}
	e.EventBus = bus

	return nil
}

func runMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	migrator := migrate.NewMigrator(db, statsmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply stats migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to open queue pool: %w", err)
	}
	defer pool.Close()
	return statsqueue.Migrate(ctx, pool)
}

// Reset truncates every stats table.
func (e *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	if err := TruncateTables(e.Ctx, e.DB, StatsTables...); err != nil {
		t.Fatalf("Failed to reset stats tables: %v", err)
	}
}

// Cleanup closes connections and terminates the containers.
func (e *TestEnvironment) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if e.EventBus != nil {
		if err := e.EventBus.Close(); err != nil {
			log.Printf("Error closing EventBus: %v", err)
		}
	}
	if e.DBService != nil {
		_ = e.DBService.Close()
	}
	if e.NatsContainer != nil {
		if err := e.NatsContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if e.PgContainer != nil {
		if err := e.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
	if e.CancelContext != nil {
		e.CancelContext()
	}
}

// Shutdown tears down the shared environment, if one was started.
func Shutdown() {
	if env != nil {
		env.Cleanup()
	}
}

// TruncateTables empties the given tables and everything referencing them.
func TruncateTables(ctx context.Context, db *bun.DB, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}

	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = fmt.Sprintf(`"%s"`, table)
	}
	query := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " CASCADE"

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables %v: %w", tables, err)
	}
	return nil
}
