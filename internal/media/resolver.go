// Package media turns stored image references into URLs the browser can load.
package media

import (
	"fmt"
	"path"
	"strings"

	"coreflow-cms/internal/config"
)

const placeholderPath = "images/placeholder.png"

// Resolver maps a stored image reference (a filename relative to the media root, or an
// absolute URL) to a public URL.
type Resolver interface {
	ResolveImageURL(ref string) string
}

// NewResolver picks the implementation for the configured media backend.
func NewResolver(cfg *config.Config) (Resolver, error) {
	base := baseResolver{staticURL: cfg.StaticURL}
	switch cfg.MediaBackend {
	case config.MediaLocal:
		return &LocalResolver{baseResolver: base, mediaURL: cfg.MediaURL}, nil
	case config.MediaStatic:
		return &StaticResolver{baseResolver: base}, nil
	case config.MediaCloudinary:
		return &CloudinaryResolver{baseResolver: base, cloudName: cfg.CloudinaryCloudName, width: ImageWidth}, nil
	default:
		return nil, fmt.Errorf("media: unsupported backend %q", cfg.MediaBackend)
	}
}

type baseResolver struct {
	staticURL string
}

// passthrough handles the refs every backend treats the same way.
func (b baseResolver) passthrough(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return b.staticURL + placeholderPath, true
	}
	if IsAbsoluteURL(ref) {
		return ref, true
	}
	return "", false
}

// LocalResolver serves files from MEDIA_ROOT under MEDIA_URL.
type LocalResolver struct {
	baseResolver
	mediaURL string
}

func (r *LocalResolver) ResolveImageURL(ref string) string {
	if u, ok := r.passthrough(ref); ok {
		return u
	}
	return r.mediaURL + cleanRef(ref)
}

// StaticResolver serves uploads bundled with the static files, for hosts without a
// persistent filesystem.
type StaticResolver struct {
	baseResolver
}

func (r *StaticResolver) ResolveImageURL(ref string) string {
	if u, ok := r.passthrough(ref); ok {
		return u
	}
	return r.staticURL + "uploads/" + cleanRef(ref)
}

// CloudinaryResolver builds optimized delivery URLs for images stored on Cloudinary.
type CloudinaryResolver struct {
	baseResolver
	cloudName string
	width     int
}

func (r *CloudinaryResolver) ResolveImageURL(ref string) string {
	if u, ok := r.passthrough(ref); ok {
		return u
	}
	return BuildOptimizedImageURL(r.cloudName, PublicID(ref), r.width)
}

func IsAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// PublicID is the Cloudinary public id of a local file reference: the path without its
// extension.
func PublicID(ref string) string {
	ref = cleanRef(ref)
	return strings.TrimSuffix(ref, path.Ext(ref))
}

func cleanRef(ref string) string {
	return strings.TrimLeft(path.Clean("/"+strings.TrimSpace(ref)), "/")
}
