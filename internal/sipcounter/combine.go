package sipcounter

import (
	"errors"
	"fmt"

	"sipcounter/internal/link"
)

// ErrIncompatibleDirections is returned when combining a direction aware
// counter (IN/OUT) with a direction agnostic one (BOTH).
var ErrIncompatibleDirections = errors.New("incompatible direction vocabularies")

// Combine returns a new counter holding the counts of a and b. Its filter
// and hint sets are the union of both; name and greedy mode come from a.
// Neither a nor b is modified.
func Combine(a, b *Counter) (*Counter, error) {
	if err := compatible(a, b); err != nil {
		return nil, err
	}
	out := build(union(a.cfg, b.cfg), a.data)
	out.data.Update(b.data)
	return out, nil
}

// Difference returns a new counter with the configuration of a and the
// counts of a minus b, compacted. Neither a nor b is modified.
func Difference(a, b *Counter) (*Counter, error) {
	if err := compatible(a, b); err != nil {
		return nil, err
	}
	out := a.Clone()
	out.data.Subtract(b.data, true)
	return out, nil
}

// MergeInto adds the counts of src to dst in place. The configuration of
// dst is left unchanged.
func MergeInto(dst, src *Counter) error {
	if err := compatible(dst, src); err != nil {
		return err
	}
	dst.data.Update(src.data)
	return nil
}

// SubtractFrom removes the counts of src from dst in place and compacts.
func SubtractFrom(dst, src *Counter) error {
	if err := compatible(dst, src); err != nil {
		return err
	}
	dst.data.Subtract(src.data, true)
	return nil
}

// Compare orders counters by total count: -1, 0 or +1.
func Compare(a, b *Counter) int {
	ta, tb := a.Total(), b.Total()
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	}
	return 0
}

// compatible rejects mixing IN/OUT counts with BOTH counts when the two
// counters share no direction label. Empty counters are compatible with
// anything.
func compatible(a, b *Counter) error {
	da, db := a.data.Directions(), b.data.Directions()
	if len(da) == 0 || len(db) == 0 {
		return nil
	}
	for d := range da {
		if _, ok := db[d]; ok {
			return nil
		}
	}
	if aware(da) != aware(db) {
		return fmt.Errorf("combine %q with %q: %w", a.Name(), b.Name(), ErrIncompatibleDirections)
	}
	return nil
}

func aware(dirs map[link.Direction]struct{}) bool {
	for d := range dirs {
		if d.Aware() {
			return true
		}
	}
	return false
}
