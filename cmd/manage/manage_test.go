package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coreflow-cms/internal/app"
	"coreflow-cms/internal/cache"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/config"
	"coreflow-cms/internal/store/storetest"
	"coreflow-cms/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	calls []string
}

func (f *fakeUploader) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	f.calls = append(f.calls, folder+"/"+publicID)
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".png", nil
}

func TestUploadImagesRewritesRefs(t *testing.T) {
	ctx := context.Background()
	db := storetest.OpenSQLite(t, &taxonomy.Term{}, &casestudies.CaseStudy{}, &comments.Comment{})
	terms := taxonomy.NewService(taxonomy.NewGormRepository(db), time.UTC)
	cases := casestudies.NewService(casestudies.NewGormRepository(db), casestudies.Options{Terms: terms})

	client, err := terms.Ensure(ctx, taxonomy.KindClient, "MineraCorp")
	require.NoError(t, err)
	location, err := terms.Ensure(ctx, taxonomy.KindLocation, "Perth")
	require.NoError(t, err)
	industry, err := terms.Ensure(ctx, taxonomy.KindIndustry, "Mining")
	require.NoError(t, err)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "casestudies"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "casestudies", "pit.png"), []byte("png"), 0o644))

	newCase := func(title, image string) casestudies.CaseStudy {
		item, err := cases.Create(ctx, casestudies.UpsertRequest{
			Title:       title,
			ClientID:    client.ID,
			LocationID:  location.ID,
			IndustryID:  industry.ID,
			Description: "<p>x</p>",
			Image:       image,
		})
		require.NoError(t, err)
		return item
	}
	local := newCase("Open Pit", "casestudies/pit.png")
	hosted := newCase("Hosted", "https://cdn.example.com/a.png")

	up := &fakeUploader{}
	var out bytes.Buffer
	require.NoError(t, uploadImages(ctx, &out, cases, up, root, "casestudies"))

	assert.Equal(t, []string{"casestudies/pit"}, up.calls)
	got, err := cases.Get(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/casestudies/pit.png", got.Image)
	got, err = cases.Get(ctx, hosted.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", got.Image)
	assert.Contains(t, out.String(), "1 uploaded")
}

func TestUsersCreateValidatesFlags(t *testing.T) {
	root := rootCommand()
	root.SetArgs([]string{"users", "create", "alice", "--role", "owner", "--password", "s3cret-pass"})
	root.SetOut(io.Discard)
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")

	root = rootCommand()
	root.SetArgs([]string{"users", "create", "alice", "--password", "short"})
	root.SetOut(io.Discard)
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8")
}

func TestModerateWarnsAboutInProcessCache(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "cms.db"))
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "")

	root := rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"comments", "approve", "000000000000000000000000"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "0 comment(s) updated")
	assert.Contains(t, out.String(), "within 2m0s")
	assert.Contains(t, out.String(), "REDIS_URL")
}

func TestCacheNoticeSilentWithRedis(t *testing.T) {
	redisCache := cache.NewRedis("localhost:6379", "", 0)
	t.Cleanup(func() { _ = redisCache.Close() })

	var out bytes.Buffer
	cacheNotice(&out, &app.App{Cfg: &config.Config{CacheTTLSeconds: 60}, Cache: redisCache})
	assert.Empty(t, out.String())

	cacheNotice(&out, &app.App{Cfg: &config.Config{CacheTTLSeconds: 60}, Cache: cache.NewMemory(time.Minute)})
	assert.Contains(t, out.String(), "within 1m0s")
}
