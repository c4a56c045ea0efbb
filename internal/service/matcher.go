package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hhios1618-pixel/registroventas/internal/catalog"
	"github.com/hhios1618-pixel/registroventas/internal/domain"
	"github.com/hhios1618-pixel/registroventas/internal/telemetry"
)

const (
	// MinQueryLength is the shortest product-name fragment worth
	// searching. Below it candidates are cleared, not searched.
	MinQueryLength = 3

	// DefaultSearchDebounce is the pause after the last keystroke
	// before a catalog search fires.
	DefaultSearchDebounce = 325 * time.Millisecond

	defaultSearchLimit   = 8
	catalogSearchTimeout = 10 * time.Second
)

// lineSearch tracks the in-flight search state for one line item.
// seq is monotonic per line: every scheduled search takes the next
// value, and only a response carrying the latest value may land.
type lineSearch struct {
	timer *time.Timer
	seq   uint64
	query string
}

// CatalogMatcher debounces per-line product-name keystrokes into
// catalog searches and merges the results back into the session.
//
// Responses arrive on searcher goroutines while the agent keeps
// typing, so every response is tagged with the line's sequence number
// and the query it was issued for. Under the session lock a response
// is applied only when it is the newest one issued for the line AND
// the line still shows the same name. Anything else is dropped:
// applying a stale result would attach candidates for a query the
// agent has already abandoned.
type CatalogMatcher struct {
	searcher catalog.Searcher
	delay    time.Duration
	limit    int
	logger   *slog.Logger

	session *Session
	lines   map[uint64]*lineSearch
}

func newCatalogMatcher(s *Session, searcher catalog.Searcher, delay time.Duration, logger *slog.Logger) *CatalogMatcher {
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &CatalogMatcher{
		searcher: searcher,
		delay:    delay,
		limit:    defaultSearchLimit,
		logger:   logger,
		session:  s,
		lines:    make(map[uint64]*lineSearch),
	}
}

// Keystroke registers a change to a line's product name. The caller
// holds the session lock. Any pending search for the line is
// rescheduled; a query below the minimum length cancels instead and
// clears whatever candidates are on screen.
func (m *CatalogMatcher) Keystroke(item *domain.LineItem) {
	ls := m.lines[item.ID]
	if ls == nil {
		ls = &lineSearch{}
		m.lines[item.ID] = ls
	}
	if ls.timer != nil {
		ls.timer.Stop()
		ls.timer = nil
	}

	query := strings.TrimSpace(item.ProductName)
	if len(query) < MinQueryLength {
		// Advance the sequence so any search already on the wire
		// cannot land either.
		ls.seq++
		ls.query = ""
		item.Candidates = nil
		if item.RecognitionStatus == domain.RecognitionAmbiguous {
			item.RecognitionStatus = domain.RecognitionUnknown
		}
		return
	}

	ls.seq++
	ls.query = query
	seq := ls.seq
	lineID := item.ID
	ls.timer = time.AfterFunc(m.delay, func() {
		m.fire(lineID, query, seq)
	})
}

// fire runs on the debounce timer's goroutine, outside the session
// lock. The network call happens here; the merge happens in apply.
func (m *CatalogMatcher) fire(lineID uint64, query string, seq uint64) {
	if telemetry.Business != nil {
		telemetry.Business.SearchesIssued.Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogSearchTimeout)
	defer cancel()

	candidates, err := m.searcher.Search(ctx, query, m.limit)
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.SearchesFailed.Inc()
		}
		m.logger.Warn("catalog search failed",
			slog.Uint64("line_id", lineID),
			slog.String("query", query),
			slog.String("error", err.Error()))
		return
	}

	m.apply(lineID, query, seq, candidates)
}

// apply merges a search response under the session lock, or drops it.
func (m *CatalogMatcher) apply(lineID uint64, query string, seq uint64, candidates []domain.ProductCandidate) {
	m.session.mu.Lock()
	defer m.session.mu.Unlock()

	ls := m.lines[lineID]
	if ls == nil || ls.seq != seq || ls.query != query {
		m.dropStale(lineID, query)
		return
	}
	item, _ := m.session.draft.ItemByID(lineID)
	if item == nil || strings.TrimSpace(item.ProductName) != query {
		m.dropStale(lineID, query)
		return
	}

	item.Candidates = candidates
	if item.RecognitionStatus != domain.RecognitionConfirmed {
		if len(candidates) > 0 {
			item.RecognitionStatus = domain.RecognitionAmbiguous
		} else {
			item.RecognitionStatus = domain.RecognitionUnknown
		}
	}
}

func (m *CatalogMatcher) dropStale(lineID uint64, query string) {
	if telemetry.Business != nil {
		telemetry.Business.StaleDropped.Inc()
	}
	m.logger.Debug("stale catalog response dropped",
		slog.Uint64("line_id", lineID),
		slog.String("query", query))
}

// Cancel stops any pending search for a removed line. Caller holds
// the session lock.
func (m *CatalogMatcher) Cancel(lineID uint64) {
	ls := m.lines[lineID]
	if ls == nil {
		return
	}
	if ls.timer != nil {
		ls.timer.Stop()
	}
	delete(m.lines, lineID)
}

// CancelAll stops every pending search, used when a session is
// discarded or its item list is replaced wholesale.
func (m *CatalogMatcher) CancelAll() {
	for id, ls := range m.lines {
		if ls.timer != nil {
			ls.timer.Stop()
		}
		delete(m.lines, id)
	}
}
