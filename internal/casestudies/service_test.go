package casestudies

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/cache"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/store/storetest"
	"coreflow-cms/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefixImages struct{}

func (prefixImages) ResolveImageURL(ref string) string { return "/media/" + ref }

type fixture struct {
	svc      *Service
	terms    *taxonomy.Service
	comments *comments.Service
	client   taxonomy.Term
	location taxonomy.Term
	industry taxonomy.Term
}

func newFixture(t *testing.T, c cache.Cache) *fixture {
	t.Helper()
	ctx := context.Background()
	db := storetest.OpenSQLite(t, &taxonomy.Term{}, &CaseStudy{}, &comments.Comment{})

	terms := taxonomy.NewService(taxonomy.NewGormRepository(db), time.UTC)
	commentSvc := comments.NewService(comments.NewGormRepository(db), time.UTC, nil, nil)
	svc := NewService(NewGormRepository(db), Options{
		Terms:    terms,
		Images:   prefixImages{},
		Comments: commentSvc,
		Cache:    c,
		CacheTTL: time.Minute,
	})
	terms.SetDependents(svc)

	f := &fixture{svc: svc, terms: terms, comments: commentSvc}
	var err error
	f.client, err = terms.Create(ctx, taxonomy.KindClient, taxonomy.UpsertRequest{Name: "MineraCorp"})
	require.NoError(t, err)
	f.location, err = terms.Create(ctx, taxonomy.KindLocation, taxonomy.UpsertRequest{Name: "Perth, Australia"})
	require.NoError(t, err)
	f.industry, err = terms.Create(ctx, taxonomy.KindIndustry, taxonomy.UpsertRequest{Name: "Mining"})
	require.NoError(t, err)
	return f
}

func (f *fixture) request(title string) UpsertRequest {
	return UpsertRequest{
		Title:       title,
		ClientID:    f.client.ID,
		LocationID:  f.location.ID,
		IndustryID:  f.industry.ID,
		Description: "<p>Work on " + title + "</p>",
		Image:       "casestudies/" + strings.ToLower(strings.ReplaceAll(title, " ", "_")) + ".jpg",
	}
}

func TestCreateDerivesSlugAndChecksTerms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	item, err := f.svc.Create(ctx, f.request("Copper Mine Expansion"))
	require.NoError(t, err)
	assert.Equal(t, "copper-mine-expansion", item.Slug)
	assert.Len(t, item.ID, 24)

	_, err = f.svc.Create(ctx, f.request("Copper Mine Expansion"))
	assert.ErrorIs(t, err, ErrSlugExists)

	req := f.request("Other")
	req.ClientID = f.location.ID
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrTermNotFound)

	req = f.request("!!!")
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

func TestUpdateKeepsOwnSlug(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	item, err := f.svc.Create(ctx, f.request("Solar Farm"))
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, f.request("Water Treatment"))
	require.NoError(t, err)

	req := f.request("Solar Farm")
	req.Excerpt = "Short"
	updated, err := f.svc.Update(ctx, item.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Short", updated.Excerpt)

	req.Slug = other.Slug
	_, err = f.svc.Update(ctx, item.ID, req)
	assert.ErrorIs(t, err, ErrSlugExists)

	_, err = f.svc.Update(ctx, "missing", f.request("Nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPagePaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.svc.ListPage(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, first.Items)
	assert.Equal(t, 1, first.TotalPages)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Create(ctx, f.request(fmt.Sprintf("Project %c", 'E'-i)))
		require.NoError(t, err)
	}

	page1, err := f.svc.ListPage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page1.Items, PageSize)
	assert.Equal(t, "Project A", page1.Items[0].Title)
	assert.Equal(t, 2, page1.TotalPages)
	assert.False(t, page1.HasPrev)
	assert.True(t, page1.HasNext)

	page2, err := f.svc.ListPage(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, "Project E", page2.Items[0].Title)
	assert.True(t, page2.HasPrev)
	assert.False(t, page2.HasNext)

	_, err = f.svc.ListPage(ctx, 3)
	assert.ErrorIs(t, err, ErrPageNotFound)
	_, err = f.svc.ListPage(ctx, 0)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestGetBySlugResolvesDisplayFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	item, err := f.svc.Create(ctx, f.request("Copper Mine Expansion"))
	require.NoError(t, err)

	alice := &auth.Principal{UserID: "u-alice", Username: "alice", Role: auth.RoleUser}
	c, err := f.comments.Submit(ctx, alice, item.Target(), "Nice")
	require.NoError(t, err)
	_, err = f.comments.Submit(ctx, alice, item.Target(), "Pending")
	require.NoError(t, err)
	_, err = f.comments.Approve(ctx, auth.Operator(), []string{c.ID})
	require.NoError(t, err)

	detail, err := f.svc.GetBySlug(ctx, "copper-mine-expansion")
	require.NoError(t, err)
	assert.Equal(t, "MineraCorp", detail.Client)
	assert.Equal(t, "Perth, Australia", detail.Location)
	assert.Equal(t, "Mining", detail.Industry)
	assert.Equal(t, "/media/casestudies/copper_mine_expansion.jpg", detail.ImageURL)
	assert.Equal(t, "Work on Copper Mine Expansion", detail.Excerpt)
	assert.Equal(t, int64(1), detail.CommentCount)

	_, err = f.svc.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascadesComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	item, err := f.svc.Create(ctx, f.request("Solar Farm"))
	require.NoError(t, err)
	alice := &auth.Principal{UserID: "u-alice", Username: "alice", Role: auth.RoleUser}
	c, err := f.comments.Submit(ctx, alice, item.Target(), "hello")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, item.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, item.ID), ErrNotFound)

	err = f.comments.Delete(ctx, alice, item.ID, c.ID)
	assert.ErrorIs(t, err, comments.ErrNotFound)
}

func TestTermDeleteRemovesFiledCaseStudies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.Create(ctx, f.request("Solar Farm"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.request("Water Treatment"))
	require.NoError(t, err)

	removed, err := f.terms.Delete(ctx, f.industry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	items, total, err := f.svc.ListAdmin(ctx, ListFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestPublicReadsAreCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cache.NewMemory(time.Minute))

	_, err := f.svc.Create(ctx, f.request("Solar Farm"))
	require.NoError(t, err)

	page, err := f.svc.ListPage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	_, err = f.svc.Create(ctx, f.request("Water Treatment"))
	require.NoError(t, err)

	page, err = f.svc.ListPage(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestDeriveExcerpt(t *testing.T) {
	assert.Equal(t, "Hello world", deriveExcerpt("<p>Hello <b>world</b></p>"))

	long := strings.Repeat("word ", 100)
	got := deriveExcerpt("<p>" + long + "</p>")
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), excerptLength+1)
}

func TestListAdminSearchesTitles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	for _, title := range []string{"Copper Mine Expansion", "Gold Mine Dewatering", "Solar Farm", "100% Uptime_Grid"} {
		_, err := f.svc.Create(ctx, f.request(title))
		require.NoError(t, err)
	}

	items, total, err := f.svc.ListAdmin(ctx, ListFilter{Title: " mine "}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "Copper Mine Expansion", items[0].Title)
	assert.Equal(t, "Gold Mine Dewatering", items[1].Title)

	// wildcards are matched literally
	items, total, err = f.svc.ListAdmin(ctx, ListFilter{Title: "0%"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "100% Uptime_Grid", items[0].Title)

	_, total, err = f.svc.ListAdmin(ctx, ListFilter{Title: "_"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = f.svc.ListAdmin(ctx, ListFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
