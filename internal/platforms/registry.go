package platforms

import (
	"github.com/publora/publora/internal/models"
)

// Registry maps the platform enum to its adapter, resolved once at
// startup. Adding a platform is a registration, not a switch edit.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// NewDefaultRegistry wires the four production adapters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(models.PlatformYoutube, NewYoutubeAdapter())
	r.Register(models.PlatformTiktok, NewTiktokAdapter())
	r.Register(models.PlatformVimeo, NewVimeoAdapter())
	r.Register(models.PlatformLinkedin, NewLinkedinAdapter())
	return r
}

func (r *Registry) Register(platform string, adapter Adapter) {
	r.adapters[platform] = adapter
}

// Adapter returns nil for unknown platforms.
func (r *Registry) Adapter(platform string) Adapter {
	return r.adapters[platform]
}

// NativelyScheduled reports whether a platform accepts a publish time
// at upload, without the registry in hand. Keep this in sync with the
// adapters' NativeScheduling.
func NativelyScheduled(platform string) bool {
	return platform == models.PlatformYoutube
}

// SupportsText reports whether a platform can publish a post with no
// media behind it. Only LinkedIn has a text surface.
func SupportsText(platform string) bool {
	return platform == models.PlatformLinkedin
}

// CommentSource returns nil for platforms without comment support
// (TikTok, Vimeo); sync is a no-op for them.
func (r *Registry) CommentSource(platform string) CommentSource {
	if src, ok := r.adapters[platform].(CommentSource); ok {
		return src
	}
	return nil
}

// StatusPoller returns nil for platforms that complete uploads
// synchronously.
func (r *Registry) StatusPoller(platform string) StatusPoller {
	if poller, ok := r.adapters[platform].(StatusPoller); ok {
		return poller
	}
	return nil
}
