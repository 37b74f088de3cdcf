package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/cinelist/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketGenres    = []byte("genres")
	bucketCountries = []byte("countries")
	bucketMeta      = []byte("meta")

	allBuckets = [][]byte{bucketGenres, bucketCountries, bucketMeta}
)

// Keys for the meta bucket
const (
	keyGenres    = "genres"
	keyCountries = "countries"
)

// CatalogStore implements domain.CatalogStore using BoltDB.
type CatalogStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte

	now func() time.Time
}

// NewCatalogStore opens the store under baseCacheDir, namespaced per API
// host. An empty baseCacheDir keeps everything in memory.
func NewCatalogStore(baseCacheDir, apiURL string) (*CatalogStore, error) {
	s := &CatalogStore{cache: make(map[string][]byte), now: time.Now}
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return s, nil
	}

	dir := baseCacheDir
	if apiURL != "" {
		dir = filepath.Join(baseCacheDir, hashAPIURL(apiURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "cinelist.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func hashAPIURL(apiURL string) string {
	normalized := strings.TrimRight(strings.ToLower(apiURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CatalogStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *CatalogStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *CatalogStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

// fetchedAt returns when key was last saved, as unix seconds
func (s *CatalogStore) fetchedAt(key string) (int64, bool) {
	var ts int64
	ok := s.get(bucketMeta, key+":fetched_at", &ts)
	return ts, ok
}

func (s *CatalogStore) touch(key string) error {
	return s.set(bucketMeta, key+":fetched_at", s.now().Unix())
}

// === Genres ===

// GetGenres returns the cached genres and when they were fetched
func (s *CatalogStore) GetGenres() ([]domain.Genre, int64, bool) {
	var genres []domain.Genre
	if !s.get(bucketGenres, "list", &genres) {
		return nil, 0, false
	}
	ts, _ := s.fetchedAt(keyGenres)
	return genres, ts, true
}

func (s *CatalogStore) SaveGenres(genres []domain.Genre) error {
	if err := s.set(bucketGenres, "list", genres); err != nil {
		return err
	}
	return s.touch(keyGenres)
}

// === Countries ===

// GetCountries returns the cached countries and when they were fetched
func (s *CatalogStore) GetCountries() ([]domain.Country, int64, bool) {
	var countries []domain.Country
	if !s.get(bucketCountries, "list", &countries) {
		return nil, 0, false
	}
	ts, _ := s.fetchedAt(keyCountries)
	return countries, ts, true
}

func (s *CatalogStore) SaveCountries(countries []domain.Country) error {
	if err := s.set(bucketCountries, "list", countries); err != nil {
		return err
	}
	return s.touch(keyCountries)
}

// InvalidateAll drops every cached entry from memory and disk
func (s *CatalogStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}
