package history

import (
	"errors"
	"testing"

	"github.com/manash/hairtry/pkg/models"
)

func item(id string) models.HistoryItem {
	return models.HistoryItem{ID: id, GeneratedImage: "data:image/png;base64," + id}
}

func ids(l Log) []string {
	var out []string
	for _, it := range l.Items() {
		out = append(out, it.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPrepend_NewestFirst(t *testing.T) {
	l := New(0)
	l = l.Prepend(item("1"))
	l = l.Prepend(item("2"))
	l = l.Prepend(item("3"))

	if got := ids(l); !equal(got, []string{"3", "2", "1"}) {
		t.Errorf("Items() = %v, want [3 2 1]", got)
	}
}

func TestPrepend_DoesNotMutate(t *testing.T) {
	before := New(0).Prepend(item("1"))
	after := before.Prepend(item("2"))

	if before.Len() != 1 {
		t.Errorf("original log changed: len = %d", before.Len())
	}
	if after.Len() != 2 {
		t.Errorf("new log len = %d, want 2", after.Len())
	}
}

func TestPrepend_NoDedup(t *testing.T) {
	l := New(0).Prepend(item("same")).Prepend(item("same"))
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestPrepend_Limit(t *testing.T) {
	l := New(2)
	for _, id := range []string{"1", "2", "3", "4"} {
		l = l.Prepend(item(id))
	}

	if got := ids(l); !equal(got, []string{"4", "3"}) {
		t.Errorf("Items() = %v, want [4 3]", got)
	}
	if l.Limit() != 2 {
		t.Errorf("Limit() = %d", l.Limit())
	}
}

func TestNew_NegativeLimit(t *testing.T) {
	l := New(-5)
	for _, id := range []string{"1", "2", "3"} {
		l = l.Prepend(item(id))
	}
	if l.Len() != 3 {
		t.Errorf("negative limit should mean unbounded, Len() = %d", l.Len())
	}
}

func TestFind(t *testing.T) {
	l := New(0).Prepend(item("a")).Prepend(item("b"))

	got, err := l.Find("a")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.ID != "a" {
		t.Errorf("Find() = %s", got.ID)
	}

	if _, err := l.Find("zzz"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Find() error = %v, want ErrItemNotFound", err)
	}
}

func TestAt(t *testing.T) {
	l := New(0).Prepend(item("old")).Prepend(item("new"))

	first, err := l.At(1)
	if err != nil || first.ID != "new" {
		t.Errorf("At(1) = %v, %v", first.ID, err)
	}
	for _, pos := range []int{0, 3, -1} {
		if _, err := l.At(pos); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("At(%d) error = %v, want ErrItemNotFound", pos, err)
		}
	}
}

func TestClear(t *testing.T) {
	l := New(3).Prepend(item("a")).Prepend(item("b"))
	cleared := l.Clear()

	if cleared.Len() != 0 {
		t.Errorf("Clear() Len() = %d", cleared.Len())
	}
	if cleared.Limit() != 3 {
		t.Errorf("Clear() dropped the limit")
	}
	if l.Len() != 2 {
		t.Error("Clear() mutated the original log")
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	l := New(0).Prepend(item("a"))
	items := l.Items()
	items[0].ID = "changed"

	if got, _ := l.At(1); got.ID != "a" {
		t.Error("Items() exposed internal storage")
	}
}

func TestTotalCost(t *testing.T) {
	l := New(0).
		Prepend(models.HistoryItem{ID: "1", Cost: 0.039}).
		Prepend(models.HistoryItem{ID: "2", Cost: 0.042})

	if got := l.TotalCost(); got < 0.0809 || got > 0.0811 {
		t.Errorf("TotalCost() = %f, want 0.081", got)
	}
}
