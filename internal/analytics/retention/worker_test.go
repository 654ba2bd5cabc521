package retention

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/punchline/internal/analytics/domain"
	"github.com/smallbiznis/punchline/internal/analytics/repository"
	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRunOncePurgesExpiredRows(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Pageview{}))

	repo := repository.NewRepository(db)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	insert := func(age time.Duration) {
		require.NoError(t, repo.Insert(ctx, &domain.Pageview{
			ID:         node.Generate(),
			OccurredAt: clk.Now().Add(-age),
			Path:       "/",
		}))
	}
	insert(100 * 24 * time.Hour)
	insert(89 * 24 * time.Hour)
	insert(time.Hour)

	holder := config.NewStaticFunnelConfigHolder(config.DefaultFunnelConfig())

	worker := NewWorker(Params{
		Log:    zap.NewNop(),
		Repo:   repo,
		Clock:  clk,
		Funnel: holder,
	})
	require.NoError(t, worker.RunOnce(ctx))

	count, err := repo.CountSince(ctx, clk.Now().AddDate(-1, 0, 0), false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
