package domain

// TowerPosition is the registered position of a cell tower. Range is the
// provider's coverage estimate in meters.
type TowerPosition struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Range float64 `json:"range"`
}
