package date

import "fmt"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// IsValid reports whether the range is not inverted.
func (r Range) IsValid() bool { return !r.To.Before(r.From) }

// Days returns the number of calendar days in the range.
func (r Range) Days() int { return r.To.Sub(r.From) + 1 }

// String returns a "from..to" representation.
func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
