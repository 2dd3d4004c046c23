//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"
	"adventure-server/migrations"
)

// PostgresSuite поднимает PostgreSQL в контейнере и применяет migrations/.
type PostgresSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	stories     repository.StoryStore
	jobs        repository.JobRepository
	logger      *zap.Logger
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = zap.NewNop()

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	require.NoError(s.T(), runMigrations(connStr))

	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)

	s.stories = repository.NewPgStoryStore(s.pool, s.logger)
	s.jobs = repository.NewPgJobRepository(s.pool, s.logger)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func runMigrations(dbURL string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) TestStoryRoundTrip() {
	ctx := s.ctx
	tx, err := s.stories.Begin(ctx)
	s.Require().NoError(err)

	story, err := tx.CreateStory(ctx, "Frozen Peak", "pg-session")
	s.Require().NoError(err)
	root, err := tx.CreateNode(ctx, story.ID, "Snow everywhere.", false, false, true)
	s.Require().NoError(err)
	s.Require().NoError(tx.Flush(ctx))
	end, err := tx.CreateNode(ctx, story.ID, "You reach the summit.", true, true, false)
	s.Require().NoError(err)
	s.Require().NoError(tx.SetOptions(ctx, root, []models.Option{{Text: "Climb", NodeID: end.ID}}))
	s.Require().NoError(tx.Commit(ctx))
	s.Require().NoError(tx.Rollback(ctx))

	got, err := s.stories.GetStory(ctx, story.ID)
	s.Require().NoError(err)
	s.Equal("Frozen Peak", got.Title)
	s.Require().Len(got.Nodes, 2)
	s.Equal([]models.Option{{Text: "Climb", NodeID: end.ID}}, got.Root().Options)
	s.Empty(got.Node(end.ID).Options)
	s.NoError(models.ValidateTree(got.Nodes, models.DefaultMaxDepth, models.DefaultMaxOptions))
}

func (s *PostgresSuite) TestStoryRollback() {
	ctx := s.ctx
	tx, err := s.stories.Begin(ctx)
	s.Require().NoError(err)
	story, err := tx.CreateStory(ctx, "Never", "pg-session")
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback(ctx))

	_, err = s.stories.GetStory(ctx, story.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresSuite) TestSecondRootRejected() {
	ctx := s.ctx
	tx, err := s.stories.Begin(ctx)
	s.Require().NoError(err)
	defer tx.Rollback(ctx)

	story, err := tx.CreateStory(ctx, "Two Roots", "pg-session")
	s.Require().NoError(err)
	_, err = tx.CreateNode(ctx, story.ID, "first", false, false, true)
	s.Require().NoError(err)
	_, err = tx.CreateNode(ctx, story.ID, "second", false, false, true)
	s.Error(err)
}

func (s *PostgresSuite) TestJobLifecycle() {
	ctx := s.ctx
	job := &models.JobRecord{JobID: "job-pg-1", Theme: "ocean", SessionID: "pg-session"}
	s.Require().NoError(s.jobs.Create(ctx, job))
	s.Equal(models.JobStatusPending, job.Status)

	s.Require().NoError(s.jobs.MarkProcessing(ctx, job.JobID))
	got, err := s.jobs.GetByJobID(ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusProcessing, got.Status)
	s.Nil(got.CompletedAt)

	s.Require().NoError(s.jobs.MarkFailed(ctx, job.JobID, "backend exploded"))
	got, err = s.jobs.GetByJobID(ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.JobStatusFailed, got.Status)
	s.Require().NotNil(got.Error)
	s.Equal("backend exploded", *got.Error)
	s.NotNil(got.CompletedAt)

	_, err = s.jobs.GetByJobID(ctx, "missing")
	s.ErrorIs(err, repository.ErrNotFound)
	s.ErrorIs(s.jobs.MarkProcessing(ctx, "missing"), repository.ErrNotFound)
}
