package db

import (
	"context"
	"testing"

	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	gdb, err := OpenSQL(config.StoreSQLite, ":memory:", false)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, table := range []string{"taxonomy_terms", "case_studies", "comments", "users"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	repos, err := NewGormRepositories(gdb)
	require.NoError(t, err)
	require.NoError(t, repos.Ping(ctx))

	n, err := repos.CaseStudies.Count(ctx, casestudies.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, repos.Close(ctx))
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL("oracle", "x", false)
	assert.Error(t, err)
}
