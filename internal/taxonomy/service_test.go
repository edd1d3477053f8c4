package taxonomy

import (
	"context"
	"testing"
	"time"

	"coreflow-cms/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependents struct {
	calls []string
	n     int64
}

func (f *fakeDependents) DeleteByTerm(ctx context.Context, kind Kind, termID string) (int64, error) {
	f.calls = append(f.calls, string(kind)+":"+termID)
	return f.n, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := storetest.OpenSQLite(t, &Term{})
	return NewService(NewGormRepository(db), time.UTC)
}

func TestCreateAndListByKind(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, KindClient, UpsertRequest{Name: "  MineraCorp "})
	require.NoError(t, err)
	_, err = svc.Create(ctx, KindClient, UpsertRequest{Name: "EcoTreat Solutions"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, KindLocation, UpsertRequest{Name: "Perth, Australia"})
	require.NoError(t, err)

	clients, err := svc.List(ctx, KindClient)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "EcoTreat Solutions", clients[0].Name)
	assert.Equal(t, "MineraCorp", clients[1].Name)
}

func TestNamesAreUniquePerKind(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, KindIndustry, UpsertRequest{Name: "Oil & Gas"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, KindIndustry, UpsertRequest{Name: "Oil & Gas"})
	assert.ErrorIs(t, err, ErrNameExists)

	// same name under another kind is fine
	_, err = svc.Create(ctx, KindClient, UpsertRequest{Name: "Oil & Gas"})
	assert.NoError(t, err)
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, Kind("sector"), UpsertRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidKind)
	_, err = svc.Create(ctx, KindClient, UpsertRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Ensure(ctx, KindLocation, "Kiruna, Sweden")
	require.NoError(t, err)
	b, err := svc.Ensure(ctx, KindLocation, "Kiruna, Sweden")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.Create(ctx, KindClient, UpsertRequest{Name: "Old Name"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, KindClient, UpsertRequest{Name: "Taken"})
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, a.ID, UpsertRequest{Name: "New Name"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", renamed.Name)

	_, err = svc.Rename(ctx, a.ID, UpsertRequest{Name: "Taken"})
	assert.ErrorIs(t, err, ErrNameExists)

	_, err = svc.Rename(ctx, "missing", UpsertRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascadesToDependents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	deps := &fakeDependents{n: 2}
	svc.SetDependents(deps)

	term, err := svc.Create(ctx, KindIndustry, UpsertRequest{Name: "Mining & Minerals"})
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, term.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, []string{"industry:" + term.ID}, deps.calls)

	_, err = svc.Get(ctx, term.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Delete(ctx, term.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAndValidate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	c, err := svc.Create(ctx, KindClient, UpsertRequest{Name: "SteelTech Industries"})
	require.NoError(t, err)
	l, err := svc.Create(ctx, KindLocation, UpsertRequest{Name: "Birmingham, United Kingdom"})
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, c.ID, l.ID, c.ID, "", "unknown")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "SteelTech Industries", got[c.ID].Name)

	assert.NoError(t, svc.Validate(ctx, KindClient, c.ID))
	assert.ErrorIs(t, svc.Validate(ctx, KindLocation, c.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Validate(ctx, KindClient, "unknown"), ErrNotFound)
}
