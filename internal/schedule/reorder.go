// Package schedule keeps the sessions of a conference day in a dense rank
// order.  The functions in this file are pure list operations; service.go
// applies them to stored sessions.
package schedule

import (
    "errors"
    "fmt"

    "github.com/iliyamo/civeni-admin/internal/model"
)

var (
    // ErrInvalidOrder means the requested order is not a permutation of the
    // day's sessions (missing or repeated ids).
    ErrInvalidOrder = errors.New("invalid session order")
    // ErrCrossDay means the requested order names a session of another day.
    // Moving a session between days is an edit, not a reorder.
    ErrCrossDay = errors.New("session does not belong to this day")
    // ErrOutOfRange means a move index is outside the day's session list.
    ErrOutOfRange = errors.New("position out of range")
)

// Move returns a copy of ids with the element at from removed and inserted
// at to.  Elements in between shift by one.
func Move(ids []string, from, to int) ([]string, error) {
    n := len(ids)
    if from < 0 || from >= n || to < 0 || to >= n {
        return nil, fmt.Errorf("%w: move %d -> %d in %d sessions", ErrOutOfRange, from, to, n)
    }
    out := make([]string, 0, n)
    out = append(out, ids[:from]...)
    out = append(out, ids[from+1:]...)
    moved := ids[from]
    out = append(out[:to], append([]string{moved}, out[to:]...)...)
    return out, nil
}

// Renumber ranks ids by position: ids[i] gets rank i.
func Renumber(ids []string) []model.Rank {
    out := make([]model.Rank, len(ids))
    for i, id := range ids {
        out[i] = model.Rank{SessionID: id, OrderInDay: i}
    }
    return out
}

// Diff returns only the ranks that differ from what is stored, in the new
// order.  An unchanged order yields no writes.
func Diff(current []model.ScheduleSession, next []string) []model.Rank {
    stored := make(map[string]int, len(current))
    for _, s := range current {
        stored[s.ID] = s.OrderInDay
    }
    out := []model.Rank{}
    for _, r := range Renumber(next) {
        if old, ok := stored[r.SessionID]; !ok || old != r.OrderInDay {
            out = append(out, r)
        }
    }
    return out
}

// ValidateOrder checks that requested is exactly the set of current session
// ids, each once.
func ValidateOrder(current []model.ScheduleSession, requested []string) error {
    known := make(map[string]bool, len(current))
    for _, s := range current {
        known[s.ID] = true
    }
    seen := make(map[string]bool, len(requested))
    for _, id := range requested {
        if !known[id] {
            return fmt.Errorf("%w: %s", ErrCrossDay, id)
        }
        if seen[id] {
            return fmt.Errorf("%w: %s listed twice", ErrInvalidOrder, id)
        }
        seen[id] = true
    }
    if len(seen) != len(known) {
        return fmt.Errorf("%w: got %d of %d sessions", ErrInvalidOrder, len(seen), len(known))
    }
    return nil
}

// IDs returns the session ids in slice order.
func IDs(sessions []model.ScheduleSession) []string {
    out := make([]string, len(sessions))
    for i, s := range sessions {
        out[i] = s.ID
    }
    return out
}
