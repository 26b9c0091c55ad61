package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// CacheEntry is the on-disk metadata file stored alongside the artifact,
// per §6's cache layout.
type CacheEntry struct {
	URI       string    `json:"uri"`
	Digest    string    `json:"digest"`
	FetchedAt time.Time `json:"fetchedAt"`
	Path      string    `json:"-"`
}

// Cache is the content-addressed artifact cache: a directory under the
// configured cache root, one subdirectory per canonicalized URI's
// digest, holding the artifact file plus metadata.json.
type Cache struct {
	root string
	mu   sync.RWMutex
}

func NewCache(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, wassetteerr.Internalf("resolver.NewCache", err, "creating cache root")
	}
	return &Cache{root: root}, nil
}

func (c *Cache) entryDir(canonicalURI string) string {
	sum := sha256.Sum256([]byte(canonicalURI))
	return filepath.Join(c.root, hex.EncodeToString(sum[:]))
}

// Lookup returns the cache entry for canonicalURI, if any. A hit
// skips all network access (§8, invariant 8).
func (c *Cache) Lookup(canonicalURI string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := c.entryDir(canonicalURI)
	metaPath := filepath.Join(dir, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return CacheEntry{}, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, false
	}
	entry.Path = filepath.Join(dir, "artifact")
	if _, err := os.Stat(entry.Path); err != nil {
		return CacheEntry{}, false
	}
	return entry, true
}

// Store writes localPath's bytes (already fetched by a Fetcher) and
// digest into the cache under canonicalURI's key. Write-once per key:
// a second Store for the same key is a no-op once an entry exists.
func (c *Cache) Store(canonicalURI, localPath, digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := c.entryDir(canonicalURI)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	artifactPath := filepath.Join(dir, "artifact")
	if _, err := os.Stat(artifactPath); err == nil {
		return nil // already cached
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != digest {
		return wassetteerr.New(wassetteerr.Resolve, "resolver.Cache.Store", "IntegrityMismatch", "fetched bytes do not match expected digest", nil)
	}
	if err := os.WriteFile(artifactPath, data, 0o644); err != nil {
		return err
	}

	entry := CacheEntry{URI: canonicalURI, Digest: digest, FetchedAt: time.Now()}
	meta, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "metadata.json"), meta, 0o644)
}

// Invalidate removes the cache entry for canonicalURI.
func (c *Cache) Invalidate(canonicalURI string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(c.entryDir(canonicalURI))
}
