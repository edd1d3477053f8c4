package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// UploadLocal pushes the file behind each local ref under root to the uploader and returns
// the hosted URL per ref. Absolute refs and empty refs are skipped.
func UploadLocal(ctx context.Context, up Uploader, root, folder string, refs []string) (map[string]string, error) {
	out := make(map[string]string, len(refs))
	for _, ref := range refs {
		if ref == "" || IsAbsoluteURL(ref) {
			continue
		}
		if _, done := out[ref]; done {
			continue
		}
		url, err := uploadFile(ctx, up, root, folder, ref)
		if err != nil {
			return out, fmt.Errorf("upload %s: %w", ref, err)
		}
		out[ref] = url
	}
	return out, nil
}

func uploadFile(ctx context.Context, up Uploader, root, folder, ref string) (string, error) {
	clean := cleanRef(ref)
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(clean)))
	if err != nil {
		return "", err
	}
	defer f.Close()

	// the folder prefix is supplied separately, so only the base name becomes the id
	publicID := path.Base(PublicID(clean))
	return up.UploadImage(ctx, f, folder, publicID)
}
