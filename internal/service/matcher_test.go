package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhios1618-pixel/registroventas/internal/domain"
)

func candidatesFor(query string) []domain.ProductCandidate {
	return []domain.ProductCandidate{{Name: "Resultado " + query, Code: "C-" + query}}
}

func TestMatcherDebounceCoalescesKeystrokes(t *testing.T) {
	w, m := newTestWorkflow(t)
	var calls atomic.Int32
	var lastQuery atomic.Value
	m.searcher.SearchFunc = func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
		calls.Add(1)
		lastQuery.Store(query)
		return candidatesFor(query), nil
	}

	w.debounce = 50 * time.Millisecond
	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)

	// Rapid typing, each keystroke well inside the debounce window.
	for _, text := range []string{"sop", "sopo", "sopor", "soporte"} {
		require.NoError(t, w.SetItemName(s.ID, lineID, text))
		time.Sleep(time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(draftOf(s).Items[0].Candidates) > 0
	}, time.Second, time.Millisecond)

	assert.Equal(t, int32(1), calls.Load(), "only the final keystroke should search")
	assert.Equal(t, "soporte", lastQuery.Load())

	d := draftOf(s)
	assert.Equal(t, domain.RecognitionAmbiguous, d.Items[0].RecognitionStatus)
	assert.Equal(t, "C-soporte", d.Items[0].Candidates[0].Code)
}

func TestMatcherShortQueryClearsCandidatesWithoutSearching(t *testing.T) {
	w, m := newTestWorkflow(t)
	var calls atomic.Int32
	m.searcher.SearchFunc = func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
		calls.Add(1)
		return candidatesFor(query), nil
	}

	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)

	s.mu.Lock()
	item, _ := s.draft.ItemByID(lineID)
	item.ProductName = "soporte"
	item.RecognitionStatus = domain.RecognitionAmbiguous
	item.Candidates = candidatesFor("soporte")
	s.mu.Unlock()

	require.NoError(t, w.SetItemName(s.ID, lineID, "so"))

	time.Sleep(30 * time.Millisecond)
	d := draftOf(s)
	assert.Empty(t, d.Items[0].Candidates)
	assert.Equal(t, domain.RecognitionUnknown, d.Items[0].RecognitionStatus)
	assert.Equal(t, int32(0), calls.Load())
}

// A slow response for an abandoned query must never land over the
// results of the query the agent actually wants.
func TestMatcherDropsStaleResponse(t *testing.T) {
	w, m := newTestWorkflow(t)

	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})
	m.searcher.SearchFunc = func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
		if query == "sop" {
			close(slowStarted)
			<-slowRelease
		}
		return candidatesFor(query), nil
	}

	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)

	require.NoError(t, w.SetItemName(s.ID, lineID, "sop"))
	<-slowStarted

	// The agent keeps typing while the first search hangs.
	require.NoError(t, w.SetItemName(s.ID, lineID, "soporte"))
	require.Eventually(t, func() bool {
		items := draftOf(s).Items
		return len(items[0].Candidates) > 0 && items[0].Candidates[0].Code == "C-soporte"
	}, time.Second, time.Millisecond)

	// Now the stale "sop" response arrives. It must be dropped.
	close(slowRelease)
	time.Sleep(30 * time.Millisecond)

	d := draftOf(s)
	require.Len(t, d.Items[0].Candidates, 1)
	assert.Equal(t, "C-soporte", d.Items[0].Candidates[0].Code)
}

func TestMatcherIgnoresResponseForRemovedLine(t *testing.T) {
	w, m := newTestWorkflow(t)

	started := make(chan struct{})
	release := make(chan struct{})
	m.searcher.SearchFunc = func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
		close(started)
		<-release
		return candidatesFor(query), nil
	}

	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)
	keptID, _ := w.AddItem(s.ID)

	require.NoError(t, w.SetItemName(s.ID, lineID, "soporte"))
	<-started
	require.NoError(t, w.RemoveItem(s.ID, lineID))

	close(release)
	time.Sleep(30 * time.Millisecond)

	d := draftOf(s)
	require.Len(t, d.Items, 1)
	assert.Equal(t, keptID, d.Items[0].ID)
	assert.Empty(t, d.Items[0].Candidates, "the removed line's results must not leak onto another line")
}

func TestMatcherEmptyResultLeavesLineUnknown(t *testing.T) {
	w, m := newTestWorkflow(t)
	searched := make(chan struct{})
	m.searcher.SearchFunc = func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
		defer close(searched)
		return []domain.ProductCandidate{}, nil
	}

	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)
	require.NoError(t, w.SetItemName(s.ID, lineID, "producto inexistente"))

	<-searched
	time.Sleep(10 * time.Millisecond)

	d := draftOf(s)
	assert.Equal(t, domain.RecognitionUnknown, d.Items[0].RecognitionStatus)
	assert.Empty(t, d.Items[0].Candidates)
}

func TestMatcherConfirmedLineStaysConfirmed(t *testing.T) {
	// Accepting a candidate cancels the line's pending search, so a
	// response arriving afterwards must be dropped even when the
	// accepted candidate's canonical name equals the query.
	w, m := newTestWorkflow(t)
	started := make(chan struct{})
	release := make(chan struct{})
	m.searcher.SearchFunc = func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
		close(started)
		<-release
		return candidatesFor(query), nil
	}

	s := w.Start(context.Background())
	lineID, _ := w.AddItem(s.ID)
	require.NoError(t, w.SetItemName(s.ID, lineID, "soporte"))
	<-started

	s.mu.Lock()
	item, _ := s.draft.ItemByID(lineID)
	item.Candidates = []domain.ProductCandidate{{Name: "soporte", Code: "SOP-001"}}
	s.mu.Unlock()
	require.NoError(t, w.AcceptCandidate(s.ID, lineID, "SOP-001"))

	close(release)
	time.Sleep(30 * time.Millisecond)

	d := draftOf(s)
	assert.Equal(t, domain.RecognitionConfirmed, d.Items[0].RecognitionStatus)
	assert.Equal(t, "SOP-001", d.Items[0].ProductCode)
}
