package bot

import (
	"strconv"
	"sync"
	"time"

	"github.com/kallistraw/tgbot/store"
)

const (
	defaultSpamWindow  = 5 * time.Second
	defaultSpamLimit   = 5
	warnCountsCacheKey = "spam_warnings"
)

type spamAction int

const (
	spamOK spamAction = iota
	spamWarn
	spamBlock
)

type spamVerdict struct {
	Action      spamAction
	Warnings    int
	MaxWarnings int
}

// spamGuard tracks per-user message timestamps in a sliding window. Crossing
// the limit earns a warning; reaching the warning cap asks the caller to
// block the user. Warning counts live in a cache so /getdb can inspect them.
type spamGuard struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	maxWarn int
	seen    map[int64][]time.Time
	cache   *store.Cache

	now func() time.Time
}

func newSpamGuard(cache *store.Cache, window time.Duration, limit int) *spamGuard {
	if cache == nil {
		cache = store.NewCache()
	}
	if window <= 0 {
		window = defaultSpamWindow
	}
	if limit <= 0 {
		limit = defaultSpamLimit
	}
	return &spamGuard{
		window:  window,
		limit:   limit,
		maxWarn: defaultMaxWarnings,
		seen:    make(map[int64][]time.Time),
		cache:   cache,
		now:     time.Now,
	}
}

func (g *spamGuard) SetMaxWarnings(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > 0 {
		g.maxWarn = n
	}
}

// Check records one message from userID and reports what to do about it.
func (g *spamGuard) Check(userID int64) spamVerdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.window)
	recent := g.seen[userID][:0]
	for _, t := range g.seen[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	g.seen[userID] = recent

	if len(recent) <= g.limit {
		return spamVerdict{Action: spamOK, Warnings: g.warnings(userID), MaxWarnings: g.maxWarn}
	}

	// Over the limit: the window restarts so one burst earns one warning.
	g.seen[userID] = nil
	warnings := g.warnings(userID) + 1
	_ = g.cache.SetMapItem(warnCountsCacheKey, strconv.FormatInt(userID, 10), int64(warnings))

	if warnings >= g.maxWarn {
		return spamVerdict{Action: spamBlock, Warnings: warnings, MaxWarnings: g.maxWarn}
	}
	return spamVerdict{Action: spamWarn, Warnings: warnings, MaxWarnings: g.maxWarn}
}

func (g *spamGuard) warnings(userID int64) int {
	v := g.cache.GetMapItem(warnCountsCacheKey, strconv.FormatInt(userID, 10), int64(0))
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
