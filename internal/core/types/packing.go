// Package types provides the packing arithmetic shared by the ledger.
//
// Stock is held as a packed triple (cartons, per-carton count, loose singles)
// and as a single canonical unit count. All functions here are total: negative
// inputs are clamped to zero instead of failing.
package types

// DefaultPerCarton is the per-carton count assumed when none is supplied.
const DefaultPerCarton int64 = 12

// Packing is the packed representation of a stock level.
type Packing struct {
	Cartons   int64 `json:"cartons"`
	PerCarton int64 `json:"perCarton"`
	Singles   int64 `json:"singles"`
}

// TotalQuantity returns cartons*perCarton + singles.
// perCarton <= 0 is treated as 1; negative cartons or singles are treated as 0.
func TotalQuantity(cartons, perCarton, singles int64) int64 {
	cartons = clamp(cartons)
	singles = clamp(singles)
	if perCarton <= 0 {
		perCarton = 1
	}
	return cartons*perCarton + singles
}

// NormalizePacking folds whole cartons out of singles.
// When singles >= perCarton (and perCarton > 0) the overflow becomes cartons
// and only the remainder stays loose; otherwise the input is returned as is
// (after clamping negatives).
func NormalizePacking(cartons, perCarton, singles int64) (int64, int64) {
	cartons = clamp(cartons)
	singles = clamp(singles)
	if perCarton <= 0 || singles < perCarton {
		return cartons, singles
	}
	extra := singles / perCarton
	return cartons + extra, singles % perCarton
}

// Decompose splits a unit count into whole cartons and loose singles.
func Decompose(quantity, perCarton int64) (int64, int64) {
	quantity = clamp(quantity)
	if perCarton <= 0 {
		return 0, quantity
	}
	return quantity / perCarton, quantity % perCarton
}

// EffectivePerCarton returns perCarton, or fallback when perCarton is not positive.
func EffectivePerCarton(perCarton, fallback int64) int64 {
	if perCarton > 0 {
		return perCarton
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultPerCarton
}

// Total returns the unit count of p.
func (p Packing) Total() int64 {
	return TotalQuantity(p.Cartons, p.PerCarton, p.Singles)
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
