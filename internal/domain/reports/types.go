package reports

import "time"

// WarehouseStats aggregates the items of one warehouse, or of a whole scope
// when WarehouseID is empty.
type WarehouseStats struct {
	WarehouseID    string `json:"warehouseId,omitempty" db:"warehouse_id"`
	ItemCount      int64  `json:"itemCount" db:"item_count"`
	TotalCartons   int64  `json:"totalCartons" db:"total_cartons"`
	TotalSingles   int64  `json:"totalSingles" db:"total_singles"`
	TotalRemaining int64  `json:"totalRemaining" db:"total_remaining"`
	TotalAdded     int64  `json:"totalAdded" db:"total_added"`
	OutOfStock     int64  `json:"outOfStock" db:"out_of_stock"`
	// LowStock counts items holding stock but less than one carton.
	LowStock int64 `json:"lowStock" db:"low_stock"`
}

// Add accumulates o into s.
func (s *WarehouseStats) Add(o WarehouseStats) {
	s.ItemCount += o.ItemCount
	s.TotalCartons += o.TotalCartons
	s.TotalSingles += o.TotalSingles
	s.TotalRemaining += o.TotalRemaining
	s.TotalAdded += o.TotalAdded
	s.OutOfStock += o.OutOfStock
	s.LowStock += o.LowStock
}

// Stats is the result of GetWarehouseStats.
type Stats struct {
	WarehouseStats
	Warehouses  []WarehouseStats `json:"warehouses"`
	GeneratedAt time.Time        `json:"generatedAt"`
}
