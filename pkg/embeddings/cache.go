package embeddings

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Cache stores target vectors between restarts.
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Put(ctx context.Context, key string, vector []float64) error
	Close() error
}

// CacheKey derives the cache key for a description embedded with model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float64
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]float64)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, vector []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = vector
	return nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	return nil
}

// SQLiteCache persists vectors in a SQLite database.
type SQLiteCache struct {
	db        *sql.DB
	getStmt   *sql.Stmt
	putStmt   *sql.Stmt
	closeOnce sync.Once
}

// NewSQLiteCache opens (or creates) the cache database at path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports single writer
	db.SetMaxIdleConns(1)

	c := &SQLiteCache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := c.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) initSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS target_vectors (
		cache_key TEXT PRIMARY KEY,
		vector TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`)
	return err
}

func (c *SQLiteCache) prepareStatements() error {
	var err error

	c.getStmt, err = c.db.Prepare(`SELECT vector FROM target_vectors WHERE cache_key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	c.putStmt, err = c.db.Prepare(`
		INSERT INTO target_vectors (cache_key, vector, created_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET vector = excluded.vector, created_at = excluded.created_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}
	return nil
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	var raw string
	err := c.getStmt.QueryRowContext(ctx, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read vector: %w", err)
	}

	var vector []float64
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, false, fmt.Errorf("corrupt cached vector for %s: %w", key, err)
	}
	return vector, true, nil
}

// Put implements Cache.
func (c *SQLiteCache) Put(ctx context.Context, key string, vector []float64) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	if _, err := c.putStmt.ExecContext(ctx, key, string(raw), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write vector: %w", err)
	}
	return nil
}

// Close implements Cache.
func (c *SQLiteCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.getStmt.Close()
		c.putStmt.Close()
		err = c.db.Close()
	})
	return err
}
