//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"steamnews/internal/config"
	"steamnews/internal/domain"
	"steamnews/internal/feed"
	"steamnews/internal/service"
	"steamnews/migrations"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db

	applied, err := Migrate(s.ctx, s.db, migrations.FS)
	s.Require().NoError(err)
	s.Require().NotEmpty(applied)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM item_sources")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM news_items")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM cache_entries")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sources")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) seedSources() {
	_, err := NewSourceStore(s.db).Add(s.ctx, map[int64]string{
		440: "Team Fortress 2",
		620: "Portal 2",
		400: "Portal",
	})
	s.Require().NoError(err)
}

func testItem(id string, published time.Time) *domain.NewsItem {
	return &domain.NewsItem{
		ID:          id,
		Title:       "Patch",
		URL:         "https://example.com/" + id,
		Author:      "Valve",
		Content:     "first content",
		FeedLabel:   "Community Announcements",
		FeedName:    "steam_community_announcements",
		Format:      domain.FormatBBCode,
		PublishedAt: published,
		SourceID:    440,
	}
}

func (s *PostgresIntegrationSuite) TestMigrate_IsRepeatable() {
	_, err := Migrate(s.ctx, s.db, migrations.FS)
	s.NoError(err)
}

func (s *PostgresIntegrationSuite) TestSourceStore_AddIgnoresKnownSources() {
	store := NewSourceStore(s.db)
	s.seedSources()

	added, err := store.Add(s.ctx, map[int64]string{440: "Renamed", 570: "Dota 2"})
	s.NoError(err)
	s.Equal(1, added)

	matches, err := store.Matching(s.ctx, "")
	s.NoError(err)
	s.Len(matches, 4)
	for _, m := range matches {
		if m.ID == 440 {
			s.Equal("Team Fortress 2", m.Name)
		}
	}
}

func (s *PostgresIntegrationSuite) TestSourceStore_Matching() {
	store := NewSourceStore(s.db)
	s.seedSources()

	matches, err := store.Matching(s.ctx, "%PORTAL%")
	s.NoError(err)
	s.Require().Len(matches, 2)
	s.Equal("Portal", matches[0].Name)
	s.Equal("Portal 2", matches[1].Name)
	s.True(matches[0].ShouldFetch)
}

func (s *PostgresIntegrationSuite) TestSourceStore_SetShouldFetchAndToFetch() {
	store := NewSourceStore(s.db)
	s.seedSources()

	n, err := store.SetShouldFetch(s.ctx, []int64{400, 620, 999}, false)
	s.NoError(err)
	s.Equal(2, n)

	toFetch, err := store.ToFetch(s.ctx)
	s.NoError(err)
	s.Equal(map[int64]string{440: "Team Fortress 2"}, toFetch)

	n, err = store.SetShouldFetch(s.ctx, []int64{620}, true)
	s.NoError(err)
	s.Equal(1, n)

	toFetch, err = store.ToFetch(s.ctx)
	s.NoError(err)
	s.Len(toFetch, 2)
}

func (s *PostgresIntegrationSuite) TestItemStore_InsertIsIdempotent() {
	store := NewItemStore(s.db)
	s.seedSources()
	published := time.Unix(1_700_000_000, 0).UTC()

	inserted, err := store.Insert(s.ctx, testItem("gid-1", published))
	s.NoError(err)
	s.True(inserted)

	again := testItem("gid-1", published)
	again.Content = "second content"
	inserted, err = store.Insert(s.ctx, again)
	s.NoError(err)
	s.False(inserted)

	items, err := store.RecentItems(s.ctx, published.Add(-time.Hour), 0)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal("first content", items[0].Content)
	s.Equal(domain.FormatBBCode, items[0].Format)
	s.True(published.Equal(items[0].PublishedAt))
	s.Equal(int64(440), items[0].SourceID)
}

func (s *PostgresIntegrationSuite) TestItemStore_AssociationsAccumulate() {
	store := NewItemStore(s.db)
	s.seedSources()

	_, err := store.Insert(s.ctx, testItem("gid-1", time.Now()))
	s.Require().NoError(err)

	s.NoError(store.Associate(s.ctx, "gid-1", 620))
	s.NoError(store.Associate(s.ctx, "gid-1", 440))
	s.NoError(store.Associate(s.ctx, "gid-1", 440))

	names, err := store.SourceNamesFor(s.ctx, "gid-1")
	s.NoError(err)
	s.Equal([]string{"Team Fortress 2", "Portal 2"}, names)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM item_sources WHERE global_id = $1", "gid-1"))
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestItemStore_RecentItemsWindowAndLimit() {
	store := NewItemStore(s.db)
	s.seedSources()
	now := time.Now().Truncate(time.Second)

	for id, age := range map[string]time.Duration{
		"fresh":  time.Hour,
		"older":  24 * time.Hour,
		"oldest": 40 * 24 * time.Hour,
	} {
		_, err := store.Insert(s.ctx, testItem(id, now.Add(-age)))
		s.Require().NoError(err)
	}

	items, err := store.RecentItems(s.ctx, now.AddDate(0, 0, -30), 0)
	s.NoError(err)
	s.Require().Len(items, 2)
	s.Equal("fresh", items[0].ID)
	s.Equal("older", items[1].ID)

	items, err = store.RecentItems(s.ctx, now.AddDate(0, 0, -30), 1)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal("fresh", items[0].ID)
}

func (s *PostgresIntegrationSuite) TestExpiryStore() {
	store := NewExpiryStore(s.db)
	s.seedSources()

	_, found, err := store.Expiry(s.ctx, 440)
	s.NoError(err)
	s.False(found)

	s.NoError(store.SetExpiry(s.ctx, 440, 1_700_003_600))
	s.NoError(store.SetExpiry(s.ctx, 440, 1_700_007_200))

	expiry, found, err := store.Expiry(s.ctx, 440)
	s.NoError(err)
	s.True(found)
	s.Equal(int64(1_700_007_200), expiry)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	items := NewItemStore(s.db)
	s.seedSources()

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := items.Insert(ctx, testItem("rolled-back", time.Now())); err != nil {
			return err
		}
		if err := items.Associate(ctx, "rolled-back", 440); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Error(err)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM news_items WHERE global_id = $1", "rolled-back"))
	s.Equal(0, count)
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM item_sources WHERE global_id = $1", "rolled-back"))
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestDeletingSourceCascades() {
	items := NewItemStore(s.db)
	s.seedSources()

	_, err := items.Insert(s.ctx, testItem("gid-1", time.Now()))
	s.Require().NoError(err)
	s.Require().NoError(items.Associate(s.ctx, "gid-1", 620))
	s.Require().NoError(NewExpiryStore(s.db).SetExpiry(s.ctx, 620, 1_700_000_000))

	_, err = s.db.ExecContext(s.ctx, "DELETE FROM sources WHERE id = 620")
	s.Require().NoError(err)

	names, err := items.SourceNamesFor(s.ctx, "gid-1")
	s.NoError(err)
	s.Empty(names)

	_, found, err := NewExpiryStore(s.db).Expiry(s.ctx, 620)
	s.NoError(err)
	s.False(found)
}

// sharedNews serves the same item for every source.
type sharedNews struct {
	published time.Time
}

func (n sharedNews) FetchNews(_ context.Context, sourceID int64) (*domain.NewsBatch, error) {
	item := testItem("shared-gid", n.published)
	return &domain.NewsBatch{
		SourceID:  sourceID,
		Items:     []domain.NewsItem{*item},
		ExpiresAt: n.published.Add(time.Hour),
	}, nil
}

func (s *PostgresIntegrationSuite) TestFetchAndPublish_SharedItem() {
	sources := NewSourceStore(s.db)
	items := NewItemStore(s.db)
	_, err := sources.Add(s.ctx, map[int64]string{440: "Team Fortress 2", 620: "Portal 2"})
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	published := time.Now().Add(-time.Hour).Truncate(time.Second)

	svc := service.NewFetchService(
		sources,
		items,
		service.NewCacheManager(NewExpiryStore(s.db)),
		sharedNews{published: published},
		NewTransactionManager(s.db),
		nil,
		logger,
		config.FetchConfig{MaxItemAgeDays: 30},
	)

	stats, err := svc.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.FetchHits)
	s.Equal(1, stats.ItemsNew)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM news_items"))
	s.Equal(1, count)
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM item_sources WHERE global_id = $1", "shared-gid"))
	s.Equal(2, count)

	synth := feed.NewSynthesizer(items, config.FeedConfig{Title: "Steam Game News", WindowDays: 30, MaxItems: 100}, logger)
	rss, err := synth.Build(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rss.Items, 1)
	s.Equal("[Multiple] Patch", rss.Items[0].Title)
	s.Contains(rss.Items[0].Description, "for Team Fortress 2, Portal 2")
}
