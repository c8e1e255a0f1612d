package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/config"
	"github.com/shelfnotes/shelfnotes-server/internal/logger"
	"github.com/shelfnotes/shelfnotes-server/internal/media/images"
	"github.com/shelfnotes/shelfnotes-server/internal/metadata/googlebooks"
)

// GoogleBooksHandle wraps the Google Books client with shutdown capability.
type GoogleBooksHandle struct {
	*googlebooks.Client
}

// Shutdown implements do.Shutdownable.
func (h *GoogleBooksHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideGoogleBooksClient provides the rate-limited Google Books client.
func ProvideGoogleBooksClient(i do.Injector) (*GoogleBooksHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := googlebooks.New(googlebooks.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		APIKey:     cfg.Catalog.APIKey,
		Timeout:    cfg.Catalog.Timeout,
		MaxResults: cfg.Catalog.MaxResults,
	}, log.Logger)

	return &GoogleBooksHandle{Client: client}, nil
}

// CoverHasherHandle holds the cover BlurHash computer. Hasher is nil when
// placeholders are disabled.
type CoverHasherHandle struct {
	Hasher *images.Hasher
}

// ProvideCoverHasher provides the cover BlurHash computer.
func ProvideCoverHasher(i do.Injector) (*CoverHasherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Catalog.CoverBlurHash {
		return &CoverHasherHandle{}, nil
	}
	return &CoverHasherHandle{Hasher: images.NewHasher(nil)}, nil
}
