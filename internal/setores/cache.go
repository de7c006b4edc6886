// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package setores supplies the sector reference list to the search form with
// best-effort freshness. A failed fetch degrades through the persisted cache
// (stale data is served and revalidated in the background) down to a
// hardcoded last-resort list; the caller is never blocked on an error.
package setores

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

const maxErrorBodyBytes = 8 * 1024

// Storage persists the cache entry between runs. Implementations return
// os.ErrNotExist (wrapped or not) from Read when no entry has been written.
type Storage interface {
	Read() ([]byte, error)
	Write([]byte) error
}

// FileStorage keeps the cache entry in a single JSON file.
type FileStorage struct {
	Path string
}

func (f FileStorage) Read() ([]byte, error) { return os.ReadFile(f.Path) }
func (f FileStorage) Write(b []byte) error  { return os.WriteFile(f.Path, b, 0o600) }

// entry is the persisted cache blob.
type entry struct {
	Data      []types.Sector `json:"data"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
}

// State is the cache's view of the sector list at a point in time.
type State struct {
	Sectors         []types.Sector
	Loading         bool
	Err             error
	UsingStaleCache bool
	UsingFallback   bool

	// StaleCacheAge is the served entry's age in minutes, nil unless
	// operating on stale data.
	StaleCacheAge *int
}

// Cache loads the sector list with retry, persistence, and degradation.
// One Cache serves one page lifetime; create a new one per session.
type Cache struct {
	cfg     types.SetoresConfig
	client  *http.Client
	storage Storage
	now     func() time.Time
	logger  *zap.Logger

	mu    sync.Mutex
	state State

	revalOnce sync.Once
	stop      chan struct{}
}

// New builds a Cache. A nil client falls back to http.DefaultClient, a nil
// storage to a FileStorage at cfg.CachePath, and a nil logger to a no-op.
func New(cfg types.SetoresConfig, client *http.Client, storage Storage, logger *zap.Logger) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	if storage == nil {
		storage = FileStorage{Path: cfg.CachePath}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		cfg:     cfg,
		client:  client,
		storage: storage,
		now:     time.Now,
		logger:  logger,
		state:   State{Loading: true},
		stop:    make(chan struct{}),
	}
}

// Load fetches the sector list, falling back per the degradation policy.
// It blocks through the fetch attempts; background revalidation, when
// entered, runs on its own goroutine until Stop or the attempt cap.
func (c *Cache) Load(ctx context.Context) {
	data, err := c.fetchWithRetry(ctx)
	if err == nil {
		c.persist(data)
		c.setState(State{Sectors: data})
		return
	}

	c.logger.Warn("sector fetch failed, degrading", zap.Error(err))

	if e, ok := c.readEntry(); ok {
		age := c.now().Sub(time.UnixMilli(e.Timestamp))
		stale := age >= c.cfg.TTL
		st := State{Sectors: e.Data, UsingStaleCache: stale, Err: err}
		if stale {
			minutes := int(age.Minutes())
			st.StaleCacheAge = &minutes
		}
		c.setState(st)
		if stale {
			c.revalOnce.Do(func() { go c.revalidate() })
		}
		return
	}

	c.setState(State{Sectors: Fallback(), UsingFallback: true, Err: err})
}

// Snapshot returns the current cache state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop tears down background revalidation. Safe to call more than once and
// without Load having entered stale mode.
func (c *Cache) Stop() {
	c.mu.Lock()
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	c.mu.Unlock()
}

func (c *Cache) setState(st State) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// fetchWithRetry tries the network up to cfg.FetchAttempts times, waiting
// BackoffBase, then double, between attempts.
func (c *Cache) fetchWithRetry(ctx context.Context) ([]types.Sector, error) {
	attempts := c.cfg.FetchAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := c.cfg.BackoffBase << (i - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		data, err := c.fetchOnce(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		c.logger.Debug("sector fetch attempt failed",
			zap.Int("attempt", i+1), zap.Error(err))
	}
	return nil, lastErr
}

func (c *Cache) fetchOnce(ctx context.Context) ([]types.Sector, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/setores", nil)
	if err != nil {
		return nil, fmt.Errorf("building sector request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sectors: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("sector endpoint returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Setores []types.Sector `json:"setores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding sector list: %w", err)
	}
	if len(payload.Setores) == 0 {
		return nil, fmt.Errorf("sector endpoint returned an empty list")
	}
	return payload.Setores, nil
}

func (c *Cache) persist(data []types.Sector) {
	b, err := json.Marshal(entry{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return
	}
	if err := c.storage.Write(b); err != nil {
		c.logger.Warn("persisting sector cache failed", zap.Error(err))
	}
}

// readEntry loads the persisted entry. A missing file, unreadable file,
// corrupted JSON, or empty data list all count as "no entry".
func (c *Cache) readEntry() (entry, bool) {
	b, err := c.storage.Read()
	if err != nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		c.logger.Warn("sector cache entry corrupted, ignoring", zap.Error(err))
		return entry{}, false
	}
	if len(e.Data) == 0 {
		return entry{}, false
	}
	return e, true
}

// revalidate retries the fetch every RevalidateInterval while serving stale
// data, up to RevalidateMax attempts. The first success replaces the stale
// data and stops; after the cap, revalidation stops permanently for this
// cache's lifetime.
func (c *Cache) revalidate() {
	max := c.cfg.RevalidateMax
	if max <= 0 {
		max = 5
	}

	for i := 0; i < max; i++ {
		select {
		case <-c.stop:
			return
		case <-time.After(c.cfg.RevalidateInterval):
		}

		data, err := c.fetchOnce(context.Background())
		if err != nil {
			c.logger.Debug("background revalidation failed",
				zap.Int("attempt", i+1), zap.Int("max", max), zap.Error(err))
			continue
		}

		c.persist(data)
		c.setState(State{Sectors: data})
		c.logger.Info("sector cache revalidated", zap.Int("attempt", i+1))
		return
	}

	c.logger.Warn("background revalidation exhausted, keeping stale data",
		zap.Int("attempts", max))
}
