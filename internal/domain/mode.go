package domain

// Mode selects the timeframes an engine polls. Higher is nil for
// single-timeframe strategies.
type Mode struct {
	Name    string  `json:"name"`
	Current string  `json:"current"`
	Higher  *string `json:"higher,omitempty"`
}

func (m Mode) HasHigher() bool {
	return m.Higher != nil && *m.Higher != ""
}

// VolumeConstraints are the venue limits for a symbol's order volume.
type VolumeConstraints struct {
	Step float64 `json:"step" yaml:"volume_step"`
	Min  float64 `json:"min" yaml:"volume_min"`
	Max  float64 `json:"max" yaml:"volume_max"`
}

// SymbolSpec carries per-symbol trading constraints.
type SymbolSpec struct {
	Volume         *VolumeConstraints
	PricePrecision int
}
