package logger

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

type CollectorConfig struct {
	FlushInterval time.Duration // publish interval, 0 disables periodic flush
	MaxEntries    int           // unique fingerprints retained
	Topic         string
	Publisher     Publisher // optional
}

type AggregatedEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Collector folds repeated warn/error entries by fingerprint, keeps the most
// recent ones for diagnostics, and optionally ships pending entries to a topic.
type Collector struct {
	cfg     CollectorConfig
	mu      sync.Mutex
	entries map[string]*AggregatedEntry
	pending map[string]*AggregatedEntry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 200
	}
	c := &Collector{
		cfg:     cfg,
		entries: make(map[string]*AggregatedEntry),
		pending: make(map[string]*AggregatedEntry),
	}

	if cfg.Publisher != nil && cfg.FlushInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go c.periodicFlush(ctx)
	}
	return c
}

func (c *Collector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := fingerprint(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		if len(c.entries) >= c.cfg.MaxEntries {
			c.evictOldest()
		}
		entry = &AggregatedEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
		c.entries[key] = entry
	}
	if c.cfg.Publisher != nil {
		c.pending[key] = entry
	}
}

// Recent returns up to limit entries, most recently seen first.
func (c *Collector) Recent(limit int) []AggregatedEntry {
	c.mu.Lock()
	out := make([]AggregatedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (c *Collector) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.LastSeen.Before(oldest) {
			oldestKey, oldest = k, e.LastSeen
		}
	}
	delete(c.entries, oldestKey)
	delete(c.pending, oldestKey)
}

func fingerprint(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	b, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

func (c *Collector) periodicFlush(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		}
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := make([]AggregatedEntry, 0, len(c.pending))
	for _, e := range c.pending {
		batch = append(batch, *e)
	}
	c.pending = make(map[string]*AggregatedEntry)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.cfg.Publisher.Publish(ctx, c.cfg.Topic, batch); err != nil {
		fmt.Printf("collector: publish aggregated logs: %v\n", err)
	}
}

func (c *Collector) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}
