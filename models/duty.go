// ABOUTME: Duty-ratio triple representing one TPS operating point candidate.
// ABOUTME: Plain value type; freely copyable, no identity beyond its values.

package models

// DutyPoint is one (D0, D1, D2) phase-shift triple. D0 is the external shift
// between bridges; D1 and D2 are the internal shifts of the primary and
// secondary bridge.
type DutyPoint struct {
	D0 float64 `json:"d0"`
	D1 float64 `json:"d1"`
	D2 float64 `json:"d2"`
}

// InEnvelope reports whether all three components lie inside [lo, hi].
func (d DutyPoint) InEnvelope(lo, hi float64) bool {
	return d.D0 >= lo && d.D0 <= hi &&
		d.D1 >= lo && d.D1 <= hi &&
		d.D2 >= lo && d.D2 <= hi
}

// Slice returns the triple as a 3-element slice for optimizer consumption.
func (d DutyPoint) Slice() []float64 {
	return []float64{d.D0, d.D1, d.D2}
}

// FromSlice builds a DutyPoint from the first three elements of x.
func FromSlice(x []float64) DutyPoint {
	return DutyPoint{D0: x[0], D1: x[1], D2: x[2]}
}
