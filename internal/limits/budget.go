package limits

import "fmt"

// Budget caps the number of values a heap may hold live at once.
// A nil Budget or a zero limit is unlimited.
type Budget struct {
	limit int
	used  int
	peak  int
}

func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int {
	if b == nil {
		return 0
	}
	return b.used
}

func (b *Budget) Peak() int {
	if b == nil {
		return 0
	}
	return b.peak
}

func MaxValuesMessage(limit int) string {
	return fmt.Sprintf("max live values exceeded (%d)", limit)
}

type MaxValuesError struct {
	Limit int
}

func (e MaxValuesError) Error() string {
	return MaxValuesMessage(e.Limit)
}

func (b *Budget) Charge(n int) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.limit > 0 && b.used+n > b.limit {
		return MaxValuesError{Limit: b.limit}
	}
	b.used += n
	if b.used > b.peak {
		b.peak = b.used
	}
	return nil
}

func (b *Budget) Release(n int) {
	if b == nil || n <= 0 {
		return
	}
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}
