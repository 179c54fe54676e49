package service

import (
	"fmt"

	"vintage-stats/internal/config"
	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"
)

type OverlapKind int

const (
	// OverlapFound means the stored head was located in the recent feed.
	OverlapFound OverlapKind = iota
	// OverlapNone means the stored head is absent from the recent feed.
	OverlapNone
	// OverlapEmptyHistory means nothing was stored yet.
	OverlapEmptyHistory
)

func (k OverlapKind) String() string {
	switch k {
	case OverlapFound:
		return "found"
	case OverlapNone:
		return "none"
	case OverlapEmptyHistory:
		return "empty_history"
	default:
		return "unknown"
	}
}

type ReconcileOptions struct {
	ZeroOverlap    config.ZeroOverlapPolicy
	FailOnMismatch bool
}

func ReconcileOptionsFromConfig(cfg *config.Config) ReconcileOptions {
	return ReconcileOptions{
		ZeroOverlap:    cfg.ZeroOverlap,
		FailOnMismatch: cfg.FailOnMismatch,
	}
}

// BackfillMismatch reports the first window position where stored and recent
// ids disagree. Entries before Index were merged.
type BackfillMismatch struct {
	Index    int
	Expected int64
	Found    int64
}

func (e *BackfillMismatch) Error() string {
	return fmt.Sprintf("backfill mismatch at window index %d: stored match %d, recent match %d", e.Index, e.Expected, e.Found)
}

type Reconciliation struct {
	History     domain.AccountHistory
	Overlap     OverlapKind
	CommonPoint int
	New         []domain.MatchSummary
	Backfilled  int
	Upgraded    int
	Marked      int
	Mismatch    *BackfillMismatch
}

// Changed reports whether the merged history differs from what was stored.
func (r *Reconciliation) Changed() bool {
	return len(r.New) > 0 || r.Backfilled > 0 || r.Upgraded > 0 || r.Marked > 0
}

// Pending lists ids whose detail is still unresolved, newest first.
func (r *Reconciliation) Pending() []int64 {
	var ids []int64
	for _, m := range r.History {
		if !m.Version.IsResolved() {
			ids = append(ids, m.MatchID)
		}
	}
	return ids
}

// MarkRequested advances matchID to requested. It returns false when the
// entry is missing or already requested or resolved.
func (r *Reconciliation) MarkRequested(matchID int64) bool {
	i := r.History.IndexOf(matchID)
	if i < 0 {
		return false
	}
	next := r.History[i].Version.Advance(domain.Requested())
	if next.State() == r.History[i].Version.State() {
		return false
	}
	r.History[i].Version = next
	r.Marked++
	return true
}

// Reconcile merges the recent feed into the stored history. Both inputs are
// newest first; neither is modified.
func Reconcile(recent, stored []domain.MatchSummary, opts ReconcileOptions) *Reconciliation {
	history := make(domain.AccountHistory, len(stored))
	copy(history, stored)
	r := &Reconciliation{History: history}

	switch {
	case len(stored) == 0:
		r.Overlap = OverlapEmptyHistory
		r.CommonPoint = len(recent)
	default:
		cp := indexOf(recent, stored[0].MatchID)
		if cp >= 0 {
			r.Overlap = OverlapFound
			r.CommonPoint = cp
		} else {
			r.Overlap = OverlapNone
			if opts.ZeroOverlap == config.ZeroOverlapSpliceAll {
				r.CommonPoint = len(recent)
			}
		}
	}

	r.splice(recent[:r.CommonPoint])
	if r.Overlap == OverlapFound {
		r.backfill(recent)
	}
	r.upgrade(recent)
	return r
}

func (r *Reconciliation) splice(fresh []domain.MatchSummary) {
	if len(fresh) == 0 {
		return
	}
	head := make(domain.AccountHistory, 0, len(fresh)+len(r.History))
	for _, m := range fresh {
		if r.History.Contains(m.MatchID) || containsID(head, m.MatchID) {
			continue
		}
		head = append(head, m)
		r.New = append(r.New, m)
	}
	r.History = append(head, r.History...)
}

// backfill walks the positional window following the sync point. The stored
// head sits right after the spliced entries.
func (r *Reconciliation) backfill(recent []domain.MatchSummary) {
	base := len(r.New)
	for i := 0; i < constants.BackfillWindow; i++ {
		hi, ri := base+i, r.CommonPoint+i
		if hi >= len(r.History) || ri >= len(recent) {
			return
		}
		if r.History[hi].MatchID != recent[ri].MatchID {
			r.Mismatch = &BackfillMismatch{
				Index:    i,
				Expected: r.History[hi].MatchID,
				Found:    recent[ri].MatchID,
			}
			return
		}
		if !r.History[hi].Version.IsResolved() && recent[ri].Version.IsResolved() {
			r.History[hi] = recent[ri]
			r.Backfilled++
		}
	}
}

func (r *Reconciliation) upgrade(recent []domain.MatchSummary) {
	resolved := make(map[int64]domain.DetailStatus)
	for _, m := range recent {
		if m.Version.IsResolved() {
			resolved[m.MatchID] = m.Version
		}
	}
	for i := range r.History {
		if r.History[i].Version.IsResolved() {
			continue
		}
		if status, ok := resolved[r.History[i].MatchID]; ok {
			r.History[i].Version = r.History[i].Version.Advance(status)
			r.Upgraded++
		}
	}
}

func indexOf(matches []domain.MatchSummary, matchID int64) int {
	for i, m := range matches {
		if m.MatchID == matchID {
			return i
		}
	}
	return -1
}

func containsID(matches []domain.MatchSummary, matchID int64) bool {
	return indexOf(matches, matchID) >= 0
}
