package date

import (
	"iter"
	"slices"
)

// History stores a chronological series of values, each associated with a specific date.
// It ensures that dates are unique and the series is always sorted.
type History[T any] struct {
	days   []Date
	values []T
}

// Len returns the number of items in the history.
func (h *History[T]) Len() int { return len(h.days) }

// Latest returns the latest date and value in the history.
// If the history is empty, it returns zero value.
func (h *History[T]) Latest() (day Date, value T) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, value
	}
	return h.days[last], h.values[last]
}

// search returns the index where day is, or should be inserted.
func (h *History[T]) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, day, Date.Compare)
}

// Append adds a point to the history.
//
// Existing value at that date are overwritten.
func (h *History[T]) Append(on Date, v T) *History[T] {
	i, found := h.search(on)
	if found {
		// Replacing gives higher priority to the last data.
		h.values[i] = v
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, v)
	return h
}

// Get returns the value at 'day' and true or zero value and false.
func (h *History[T]) Get(day Date) (T, bool) {
	var zero T
	if i, found := h.search(day); found {
		return h.values[i], true
	}
	return zero, false
}

// ValueAsOf returns the value on a given day, or the most recent value before it.
// It returns the day the value was recorded on and true if found.
func (h *History[T]) ValueAsOf(day Date) (Date, T, bool) {
	var zero T
	i, found := h.search(day)
	if found {
		return h.days[i], h.values[i], true
	}
	// `i` is the index where `day` would be inserted; the last entry before is at i-1.
	if i == 0 {
		return Date{}, zero, false
	}
	return h.days[i-1], h.values[i-1], true
}

// ValueOnOrAfter returns the value on a given day, or the earliest value after it.
func (h *History[T]) ValueOnOrAfter(day Date) (Date, T, bool) {
	var zero T
	i, _ := h.search(day)
	if i >= len(h.days) {
		return Date{}, zero, false
	}
	return h.days[i], h.values[i], true
}

// Values returns an iterator over all date/value pairs in the history, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

// Between returns an iterator over the date/value pairs in [from, to], in chronological order.
func (h *History[T]) Between(from, to Date) iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		i, _ := h.search(from)
		for ; i < len(h.days) && !h.days[i].After(to); i++ {
			if !yield(h.days[i], h.values[i]) {
				return
			}
		}
	}
}
