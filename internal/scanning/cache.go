package scanning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const pagesBucketName = "pages"

// Cache stores extracted pages by document key
type Cache interface {
	// Get returns the cached pages for key, or false when absent
	Get(key string) ([]string, bool, error)
	// Put stores the pages for key
	Put(key string, pages []string) error
	// Close closes the cache
	Close() error
}

// BoltCache implements the Cache interface using BoltDB
type BoltCache struct {
	db *bbolt.DB
}

// NewBoltCache opens or creates the cache file at path
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pagesBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// Get retrieves the pages stored under key
func (b *BoltCache) Get(key string) ([]string, bool, error) {
	var pages []string
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(pagesBucketName)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &pages)
	})
	if err != nil {
		return nil, false, fmt.Errorf("unmarshaling pages: %w", err)
	}
	return pages, found, nil
}

// Put saves pages under key
func (b *BoltCache) Put(key string, pages []string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(pages)
		if err != nil {
			return fmt.Errorf("marshaling pages: %w", err)
		}
		return tx.Bucket([]byte(pagesBucketName)).Put([]byte(key), data)
	})
}

// Close closes the database connection
func (b *BoltCache) Close() error {
	return b.db.Close()
}

// Cached implements the Extractor interface by consulting a Cache before the
// wrapped extractor. Documents are keyed by the SHA-256 of their content
// type and bytes, so renamed uploads hit the cache too.
type Cached struct {
	extractor Extractor
	cache     Cache
}

// NewCached wraps extractor with cache
func NewCached(extractor Extractor, cache Cache) *Cached {
	return &Cached{extractor: extractor, cache: cache}
}

// ExtractText returns cached pages or extracts and stores them
func (c *Cached) ExtractText(data []byte, contentType string) ([]string, error) {
	key := documentKey(data, contentType)

	pages, ok, err := c.cache.Get(key)
	if err != nil {
		slog.Warn("Reading extraction cache failed", "key", key, "error", err)
	} else if ok {
		return pages, nil
	}

	pages, err = c.extractor.ExtractText(data, contentType)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(key, pages); err != nil {
		slog.Warn("Writing extraction cache failed", "key", key, "error", err)
	}
	return pages, nil
}

// Close closes the wrapped extractor and the cache
func (c *Cached) Close() error {
	return errors.Join(c.extractor.Close(), c.cache.Close())
}

func documentKey(data []byte, contentType string) string {
	h := sha256.New()
	h.Write([]byte(contentType))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
