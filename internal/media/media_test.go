package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"coreflow-cms/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		MediaBackend:        backend,
		MediaURL:            "/media/",
		StaticURL:           "/static/",
		CloudinaryCloudName: "demo",
	}
}

func TestResolveImageURLPerBackend(t *testing.T) {
	tests := []struct {
		backend string
		ref     string
		want    string
	}{
		{config.MediaLocal, "casestudies/mine.jpg", "/media/casestudies/mine.jpg"},
		{config.MediaStatic, "casestudies/mine.jpg", "/static/uploads/casestudies/mine.jpg"},
		{config.MediaCloudinary, "casestudies/mine.jpg", "https://res.cloudinary.com/demo/image/upload/q_auto,f_auto,w_800,c_fill/casestudies/mine"},
		{config.MediaLocal, "", "/static/images/placeholder.png"},
		{config.MediaCloudinary, "  ", "/static/images/placeholder.png"},
		{config.MediaStatic, "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{config.MediaLocal, "../etc/passwd", "/media/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.backend+":"+tt.ref, func(t *testing.T) {
			r, err := NewResolver(testConfig(tt.backend))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ResolveImageURL(tt.ref))
		})
	}
}

func TestNewResolverRejectsUnknownBackend(t *testing.T) {
	_, err := NewResolver(testConfig("ftp"))
	assert.Error(t, err)
}

type fakeUploader struct {
	calls map[string]string
}

func (f *fakeUploader) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	body, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	f.calls[folder+"/"+publicID] = string(body)
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".jpg", nil
}

func TestUploadLocal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "casestudies"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "casestudies", "mine.jpg"), []byte("jpeg"), 0o644))

	up := &fakeUploader{calls: map[string]string{}}
	urls, err := UploadLocal(context.Background(), up, root, "casestudies", []string{
		"casestudies/mine.jpg",
		"casestudies/mine.jpg",
		"https://elsewhere.example/x.png",
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"casestudies/mine.jpg": "https://res.cloudinary.com/demo/image/upload/casestudies/mine.jpg",
	}, urls)
	assert.Equal(t, "jpeg", up.calls["casestudies/mine"])

	_, err = UploadLocal(context.Background(), up, root, "casestudies", []string{"missing.png"})
	assert.Error(t, err)
}
