// Package history keeps the session's past generations, newest first.
package history

import (
	"errors"
	"fmt"

	"github.com/manash/hairtry/pkg/models"
)

var ErrItemNotFound = errors.New("history item not found")

// Log is an immutable value: every operation returns a new Log.
type Log struct {
	items []models.HistoryItem
	limit int
}

// New returns an empty log. A limit of 0 keeps every entry.
func New(limit int) Log {
	if limit < 0 {
		limit = 0
	}
	return Log{limit: limit}
}

// Prepend adds item to the front, dropping the oldest entries past the limit.
func (l Log) Prepend(item models.HistoryItem) Log {
	n := len(l.items) + 1
	if l.limit > 0 && n > l.limit {
		n = l.limit
	}
	items := make([]models.HistoryItem, 0, n)
	items = append(items, item)
	for _, it := range l.items {
		if len(items) == n {
			break
		}
		items = append(items, it)
	}
	return Log{items: items, limit: l.limit}
}

func (l Log) Find(id string) (models.HistoryItem, error) {
	for _, it := range l.items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.HistoryItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// At returns the entry at a 1-based position.
func (l Log) At(pos int) (models.HistoryItem, error) {
	if pos < 1 || pos > len(l.items) {
		return models.HistoryItem{}, fmt.Errorf("%w: position %d", ErrItemNotFound, pos)
	}
	return l.items[pos-1], nil
}

// Clear keeps the limit.
func (l Log) Clear() Log {
	return Log{limit: l.limit}
}

func (l Log) Items() []models.HistoryItem {
	out := make([]models.HistoryItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l Log) Len() int {
	return len(l.items)
}

func (l Log) Limit() int {
	return l.limit
}

func (l Log) TotalCost() float64 {
	var total float64
	for _, it := range l.items {
		total += it.Cost
	}
	return total
}
