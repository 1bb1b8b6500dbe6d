package domain

import "math"

// Sector is one of the 16 compass points, clockwise from North at index 0.
type Sector struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Abbrev string `json:"abbr"`
}

// UnknownSector is returned for NaN or infinite degrees.
var UnknownSector = Sector{Index: -1}

// Known reports whether s is one of the 16 compass sectors.
func (s Sector) Known() bool { return s.Index >= 0 && s.Index < len(sectors) }

var sectors = [16]Sector{
	{0, "North", "N"},
	{1, "North Northeast", "NNE"},
	{2, "Northeast", "NE"},
	{3, "East Northeast", "ENE"},
	{4, "East", "E"},
	{5, "East Southeast", "ESE"},
	{6, "Southeast", "SE"},
	{7, "South Southeast", "SSE"},
	{8, "South", "S"},
	{9, "South Southwest", "SSW"},
	{10, "Southwest", "SW"},
	{11, "West Southwest", "WSW"},
	{12, "West", "W"},
	{13, "West Northwest", "WNW"},
	{14, "Northwest", "NW"},
	{15, "North Northwest", "NNW"},
}

const (
	sectorWidth    = 22.5
	northUpperEdge = sectorWidth / 2 // 11.25
)

// Sectors returns the 16 compass sectors clockwise from North.
func Sectors() []Sector { return sectors[:] }

// NormalizeDegrees folds d into [0, 360).
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// SectorOf classifies degrees into a compass sector. North covers d <= 11.25
// and d > 348.75; sector k covers (11.25+22.5(k-1), 11.25+22.5k].
func SectorOf(deg float64) Sector {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return UnknownSector
	}
	d := NormalizeDegrees(deg)
	if d <= northUpperEdge {
		return sectors[0]
	}
	k := int(math.Ceil((d - northUpperEdge) / sectorWidth))
	if k >= len(sectors) {
		return sectors[0]
	}
	return sectors[k]
}
