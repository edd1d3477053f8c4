package seed

import (
	"context"
	"testing"
	"time"

	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/store/storetest"
	"coreflow-cms/internal/taxonomy"
	"coreflow-cms/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledCatalogue(t *testing.T) {
	entries, err := Bundled()
	require.NoError(t, err)
	require.Len(t, entries, 11)

	slugs := map[string]bool{}
	for _, e := range entries {
		assert.True(t, utils.IsSlug(e.Slug), e.Slug)
		assert.False(t, slugs[e.Slug], "duplicate slug %s", e.Slug)
		slugs[e.Slug] = true
		assert.NotEmpty(t, e.Client)
		assert.NotEmpty(t, e.Location)
		assert.NotEmpty(t, e.Industry)
		assert.Contains(t, e.Description, "<p>")
	}
	assert.True(t, slugs["tailings-reprocessing-facility"])
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := storetest.OpenSQLite(t, &taxonomy.Term{}, &casestudies.CaseStudy{}, &comments.Comment{})
	terms := taxonomy.NewService(taxonomy.NewGormRepository(db), time.UTC)
	cases := casestudies.NewService(casestudies.NewGormRepository(db), casestudies.Options{Terms: terms})
	terms.SetDependents(cases)

	entries, err := Bundled()
	require.NoError(t, err)

	res, err := Run(ctx, terms, cases, entries, false)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 11}, res)

	res, err = Run(ctx, terms, cases, entries, false)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 11}, res)

	industries, err := terms.List(ctx, taxonomy.KindIndustry)
	require.NoError(t, err)
	assert.Len(t, industries, 6)

	res, err = Run(ctx, terms, cases, entries[:2], true)
	require.NoError(t, err)
	assert.Equal(t, Result{Removed: 11, Created: 2}, res)

	page, err := cases.ListPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
