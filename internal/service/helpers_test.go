package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfnotes/shelfnotes-server/internal/auth"
	"github.com/shelfnotes/shelfnotes-server/internal/config"
	"github.com/shelfnotes/shelfnotes-server/internal/metadata/googlebooks"
	"github.com/shelfnotes/shelfnotes-server/internal/search"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
	"github.com/shelfnotes/shelfnotes-server/internal/store/sqlite"
)

// fakeVerifier accepts the tokens it has identities for.
type fakeVerifier struct {
	mu         sync.Mutex
	identities map[string]*auth.GoogleIdentity
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{identities: map[string]*auth.GoogleIdentity{}}
}

func (v *fakeVerifier) add(token string, identity *auth.GoogleIdentity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.identities[token] = identity
}

func (v *fakeVerifier) Verify(_ context.Context, rawToken string) (*auth.GoogleIdentity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	identity, ok := v.identities[rawToken]
	if !ok {
		return nil, fmt.Errorf("%w: unknown test token", auth.ErrInvalidToken)
	}
	copied := *identity
	return &copied, nil
}

// fakeCatalog serves volumes from a map and counts lookups.
type fakeCatalog struct {
	mu          sync.Mutex
	volumes     map[string]*googlebooks.Volume
	volumeErr   error
	searchRes   *googlebooks.SearchResult
	searchErr   error
	delay       time.Duration
	volumeCalls atomic.Int32
	lastQuery   string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{volumes: map[string]*googlebooks.Volume{}}
}

func (c *fakeCatalog) addVolume(googleID, title string, authors ...string) *googlebooks.Volume {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := &googlebooks.Volume{
		ID: googleID,
		VolumeInfo: &googlebooks.VolumeInfo{
			Title:   title,
			Authors: authors,
		},
	}
	c.volumes[googleID] = v
	return v
}

func (c *fakeCatalog) Search(_ context.Context, query string) (*googlebooks.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastQuery = query
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	if c.searchRes == nil {
		return &googlebooks.SearchResult{Raw: map[string]any{"totalItems": 0}}, nil
	}
	return c.searchRes, nil
}

func (c *fakeCatalog) GetVolume(_ context.Context, id string) (*googlebooks.Volume, error) {
	c.volumeCalls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.volumeErr != nil {
		return nil, &googlebooks.Error{Op: "getVolume", ID: id, Err: c.volumeErr}
	}
	v, ok := c.volumes[id]
	if !ok {
		return nil, &googlebooks.Error{Op: "getVolume", ID: id, Err: googlebooks.ErrNotFound}
	}
	return v, nil
}

// fakeCovers returns a fixed hash or error.
type fakeCovers struct {
	hash string
	err  error
}

func (f fakeCovers) FromURL(context.Context, string) (string, error) {
	return f.hash, f.err
}

// testEnv bundles real services over a temporary SQLite store.
type testEnv struct {
	store    store.Store
	verifier *fakeVerifier
	catalog  *fakeCatalog
	index    *search.SearchIndex
	tokens   *auth.TokenService
	auth     *AuthService
	books    *BookService
	catalogs *CatalogService
	reviews  *ReviewService
}

func newTestTokens(t *testing.T, duration time.Duration) *auth.TokenService {
	t.Helper()
	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	return auth.NewTokenService(key, duration)
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewSearchIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	env := &testEnv{
		store:    s,
		verifier: newFakeVerifier(),
		catalog:  newFakeCatalog(),
		index:    index,
		tokens:   newTestTokens(t, 0),
	}
	cfg := config.AuthConfig{
		GoogleClientID: "client.apps.googleusercontent.com",
		AdminEmails:    []string{"admin@example.com"},
	}
	env.auth = NewAuthService(s, env.verifier, env.tokens, cfg, nil)
	env.books = NewBookService(s, env.catalog, nil, index, nil)
	env.catalogs = NewCatalogService(env.catalog, index, s, nil)
	env.reviews = NewReviewService(s, env.books, nil)
	return env
}

// login signs in a reader with the given name and returns their caller identity.
func (e *testEnv) login(t *testing.T, name string) Caller {
	t.Helper()
	token := "google-" + name
	e.verifier.add(token, &auth.GoogleIdentity{
		Subject: "sub-" + name,
		Email:   name + "@example.com",
		Name:    name,
	})
	result, err := e.auth.LoginWithGoogle(context.Background(), LoginRequest{Token: token})
	require.NoError(t, err)
	return CallerFor(result.User)
}
