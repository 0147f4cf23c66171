package settlement

import (
	"strconv"
	"sync"
	"time"
)

// SuccessMarker is the durable per-session record of a completed
// settlement. It is written before the success screen is reported so a
// full page reload re-renders the terminal state instead of re-running
// verification.
type SuccessMarker struct {
	OrderNumber    string
	RedemptionCode string
	ShopID         int64
}

const (
	// attemptTTL matches the session cookie lifetime. An entry older
	// than this belongs to a session that can no longer replay it.
	attemptTTL = 24 * time.Hour

	// sweepAt is the combined map size past which expired entries are
	// pruned, so clients minting fresh session cookies cannot grow the
	// process without bound.
	sweepAt = 4096
)

type markerEntry struct {
	marker  SuccessMarker
	expires time.Time
}

// AttemptRegistry is the re-entry guard for callback handling. The same
// redirect parameters are observed multiple times across page remounts
// and duplicate tabs; Begin performs an atomic check-and-set per
// (session, reference) so the state machine runs at most once per session
// before any network call is made.
//
// The registry is process-local. Cold restarts lose it, which is safe:
// the persisted payment row (unique gateway reference) makes re-entry
// from a blank registry a no-op settle. Entries expire with the session
// cookie and are swept once the maps grow past a threshold.
type AttemptRegistry struct {
	mu        sync.Mutex
	attempted map[string]time.Time // key -> entry expiry
	markers   map[string]markerEntry
	now       func() time.Time
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		attempted: make(map[string]time.Time),
		markers:   make(map[string]markerEntry),
		now:       time.Now,
	}
}

// AttemptKey scopes a guard to one session and one gateway reference.
func AttemptKey(sessionID, reference string) string {
	return sessionID + "|" + reference
}

// MarkerKey scopes a success marker to one session and one shop, so the
// shop's confirmation screen survives reloads.
func MarkerKey(sessionID string, shopID int64) string {
	return sessionID + "|shop:" + strconv.FormatInt(shopID, 10)
}

// Begin reports whether this is the first attempt for the key, setting
// the guard atomically if so. Callers must invoke this before any
// suspension point (gateway call, store write).
func (r *AttemptRegistry) Begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	if expires, ok := r.attempted[key]; ok && now.Before(expires) {
		return false
	}
	r.attempted[key] = now.Add(attemptTTL)
	return true
}

// Clear releases the guard after a retryable failure (network error,
// store error) so a user-initiated retry can run. Verify is idempotent
// gateway-side, so re-running the flow is safe.
func (r *AttemptRegistry) Clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempted, key)
}

// MarkSuccess stores the terminal marker for a session/shop.
func (r *AttemptRegistry) MarkSuccess(key string, m SuccessMarker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	r.markers[key] = markerEntry{marker: m, expires: now.Add(attemptTTL)}
}

// Marker returns the stored terminal marker, if any.
func (r *AttemptRegistry) Marker(key string) (SuccessMarker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.markers[key]
	if !ok || !r.now().Before(e.expires) {
		return SuccessMarker{}, false
	}
	return e.marker, true
}

// sweepLocked drops expired entries once the maps are big enough for the
// scan to be worth it. Callers hold r.mu.
func (r *AttemptRegistry) sweepLocked(now time.Time) {
	if len(r.attempted)+len(r.markers) < sweepAt {
		return
	}
	for k, expires := range r.attempted {
		if !now.Before(expires) {
			delete(r.attempted, k)
		}
	}
	for k, e := range r.markers {
		if !now.Before(e.expires) {
			delete(r.markers, k)
		}
	}
}
