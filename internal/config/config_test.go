package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("MEDIA_BACKEND", "")
	t.Setenv("DYNO", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, MediaLocal, cfg.MediaBackend)
	assert.Equal(t, "/media/", cfg.MediaURL)
	assert.Equal(t, "/static/", cfg.StaticURL)
	assert.Equal(t, "coreflow", cfg.MongoDB)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.FrontendOrigins)
}

func TestLoadPaaSDefaultsToStaticMedia(t *testing.T) {
	t.Setenv("MEDIA_BACKEND", "")
	t.Setenv("DYNO", "web.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MediaStatic, cfg.MediaBackend)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadCloudinaryNeedsCloudName(t *testing.T) {
	t.Setenv("MEDIA_BACKEND", "cloudinary")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestMongoDBFromURI(t *testing.T) {
	assert.Equal(t, "cms", mongoDBFromURI("mongodb://localhost:27017/cms"))
	assert.Equal(t, "cms", mongoDBFromURI("mongodb://localhost:27017/cms/extra"))
	assert.Equal(t, "", mongoDBFromURI("mongodb://localhost:27017"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, splitList(" a@x.io, ,b@x.io "))
	assert.Nil(t, splitList(""))
}
