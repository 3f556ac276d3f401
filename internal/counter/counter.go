package counter

import (
	"sipcounter/internal/link"
)

// Counts maps a message type to the number of times it was seen.
type Counts map[string]int

// Record holds the counts of one link, per direction.
type Record map[link.Direction]Counts

// Data is the nested count structure: link -> direction -> message type.
//
// Data is not safe for concurrent use; callers that read while another
// goroutine writes must work on a Clone.
type Data map[link.Key]Record

// Add increments the count of msgType on (key, dir) by one.
func (d Data) Add(key link.Key, dir link.Direction, msgType string) {
	d.AddN(key, dir, msgType, 1)
}

// AddN adds n to the count of msgType on (key, dir), creating the nested
// structure on first touch.
func (d Data) AddN(key link.Key, dir link.Direction, msgType string, n int) {
	rec, ok := d[key]
	if !ok {
		rec = make(Record)
		d[key] = rec
	}
	rec.AddN(dir, msgType, n)
}

// Update adds every cell of other to d.
func (d Data) Update(other Data) {
	for key, rec := range other {
		for dir, counts := range rec {
			for msgType, n := range counts {
				d.AddN(key, dir, msgType, n)
			}
		}
	}
}

// Subtract removes other from d. Only (link, direction) pairs present in
// both are touched, and only message types already present in d: subtracting
// never introduces new cells. With compact set, non-positive leftovers are
// removed.
func (d Data) Subtract(other Data, compact bool) {
	for key, orec := range other {
		rec, ok := d[key]
		if !ok {
			continue
		}
		for dir, ocounts := range orec {
			counts, ok := rec[dir]
			if !ok {
				continue
			}
			for msgType, n := range ocounts {
				if _, ok := counts[msgType]; ok {
					counts[msgType] -= n
				}
			}
		}
	}
	if compact {
		d.Compact()
	}
}

// Compact removes every cell with a value <= 0, then every direction left
// without message types and every link left without directions.
func (d Data) Compact() {
	for key, rec := range d {
		rec.Compact()
		if len(rec) == 0 {
			delete(d, key)
		}
	}
}

// Clear removes every link.
func (d Data) Clear() {
	clear(d)
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for key, rec := range d {
		out[key] = rec.Clone()
	}
	return out
}

// Total sums every cell.
func (d Data) Total() int {
	total := 0
	for _, rec := range d {
		total += rec.Total()
	}
	return total
}

// Directions returns the set of directions used anywhere in d.
func (d Data) Directions() map[link.Direction]struct{} {
	out := make(map[link.Direction]struct{})
	for _, rec := range d {
		for dir := range rec {
			out[dir] = struct{}{}
		}
	}
	return out
}

// Equal reports whether d and other hold the same cells.
func (d Data) Equal(other Data) bool {
	if len(d) != len(other) {
		return false
	}
	for key, rec := range d {
		orec, ok := other[key]
		if !ok || !rec.Equal(orec) {
			return false
		}
	}
	return true
}

// AddN adds n to msgType on dir.
func (r Record) AddN(dir link.Direction, msgType string, n int) {
	counts, ok := r[dir]
	if !ok {
		counts = make(Counts)
		r[dir] = counts
	}
	counts[msgType] += n
}

// Merge adds every cell of other to r.
func (r Record) Merge(other Record) {
	for dir, counts := range other {
		for msgType, n := range counts {
			r.AddN(dir, msgType, n)
		}
	}
}

// Compact drops non-positive cells and empty directions.
func (r Record) Compact() {
	for dir, counts := range r {
		for msgType, n := range counts {
			if n <= 0 {
				delete(counts, msgType)
			}
		}
		if len(counts) == 0 {
			delete(r, dir)
		}
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for dir, counts := range r {
		c := make(Counts, len(counts))
		for msgType, n := range counts {
			c[msgType] = n
		}
		out[dir] = c
	}
	return out
}

// Total sums every cell of r.
func (r Record) Total() int {
	total := 0
	for _, counts := range r {
		for _, n := range counts {
			total += n
		}
	}
	return total
}

// Get returns the count of msgType on dir, 0 when absent.
func (r Record) Get(dir link.Direction, msgType string) int {
	return r[dir][msgType]
}

// Equal reports whether r and other hold the same cells.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for dir, counts := range r {
		ocounts, ok := other[dir]
		if !ok || len(counts) != len(ocounts) {
			return false
		}
		for msgType, n := range counts {
			if m, ok := ocounts[msgType]; !ok || m != n {
				return false
			}
		}
	}
	return true
}
