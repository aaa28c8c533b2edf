package models

import "gorm.io/gorm"

// RecentCalculation holds the inputs of the last plan that was calculated.
// There should only ever be one row in this table.
type RecentCalculation struct {
	gorm.Model
	Symbol            string  `json:"symbol"`
	Funds             float64 `json:"funds"`
	InitialPrice      float64 `json:"initial_price"`
	StopLossPrice     float64 `json:"stop_loss_price"`
	NumGrids          int     `json:"num_grids"`
	AllocationMethod  string  `json:"allocation_method"`
	ReservePercentage float64 `json:"reserve_percentage"`
}
