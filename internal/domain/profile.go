package domain

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// MetricKind selects the output column type of a metric.
type MetricKind int

const (
	// KindNumeric produces a SamplePoint series.
	KindNumeric MetricKind = iota
	// KindDirection produces a DirectionSample series.
	KindDirection
	// KindLabel produces a LabelSample series.
	KindLabel
)

// Metric defines one output column: which fields feed it and how they are
// converted.
type Metric struct {
	Name    string
	Kind    MetricKind
	Inputs  []Field
	Convert Conversion          // numeric and direction metrics; nil means Identity
	Label   func(string) string // label metrics; nil keeps the text
	Smooth  bool
}

// Profile describes one provider shape: where the time lives, the window and
// horizon rules, and the metrics to extract.
type Profile struct {
	Name    string
	Format  string // default source format: "yr", "json" or "csv"
	Time    TimeSource
	Horizon time.Duration
	Metrics []Metric
}

const day = 24 * time.Hour

const (
	ProfileMeteogram   = "meteogram"
	ProfileWavegram    = "wavegram"
	ProfileWavegramCSV = "wavegram-csv"
)

var profileBuilders = map[string]func(DirectionConvention) Profile{
	ProfileMeteogram:   meteogramProfile,
	ProfileWavegram:    wavegramProfile,
	ProfileWavegramCSV: wavegramCSVProfile,
}

// LookupProfile returns the named profile with vector directions derived
// using conv.
func LookupProfile(name string, conv DirectionConvention) (Profile, error) {
	build, ok := profileBuilders[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return build(conv), nil
}

// ProfileNames lists the registered profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profileBuilders))
	for name := range profileBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// symbolCodeRe extracts the sprite code from a yr.no symbol "var" attribute,
// e.g. "mf/03n.11" -> "03n".
var symbolCodeRe = regexp.MustCompile(`[0-9]{2}[dnm]?`)

func symbolCode(s string) string {
	return symbolCodeRe.FindString(s)
}

func nested(name, attr string) Field {
	return Field{Name: name, Strategy: NestedAttribute, Attribute: attr}
}

func plain(name string) Field { return Field{Name: name, Strategy: PlainNumeric} }

func paren(name string) Field { return Field{Name: name, Strategy: ParenthesizedString} }

// meteogramProfile reads yr.no forecasts. Slots carry explicit from/to
// attributes and temperatures come in whole degrees, so they are smoothed.
func meteogramProfile(DirectionConvention) Profile {
	end := nested("", "to")
	return Profile{
		Name:   ProfileMeteogram,
		Format: "yr",
		Time: TimeSource{
			Start: nested("", "from"),
			End:   &end,
		},
		Horizon: 4 * day,
		Metrics: []Metric{
			{Name: "temperature", Kind: KindNumeric, Inputs: []Field{nested("temperature", "value")}, Convert: Truncate, Smooth: true},
			{Name: "precipitation", Kind: KindNumeric, Inputs: []Field{nested("precipitation", "value")}},
			{Name: "pressure", Kind: KindNumeric, Inputs: []Field{nested("pressure", "value")}},
			{Name: "windSpeed", Kind: KindNumeric, Inputs: []Field{nested("windSpeed", "mps")}},
			{Name: "windDirection", Kind: KindDirection, Inputs: []Field{nested("windDirection", "deg")}},
			{Name: "windDirectionName", Kind: KindLabel, Inputs: []Field{nested("windDirection", "name")}},
			{Name: "windSpeedName", Kind: KindLabel, Inputs: []Field{nested("windSpeed", "name")}},
			{Name: "symbol", Kind: KindLabel, Inputs: []Field{nested("symbol", "var")}, Label: symbolCode},
			{Name: "symbolName", Kind: KindLabel, Inputs: []Field{nested("symbol", "name")}},
		},
	}
}

// wavegramProfile reads JSON arrays of GRIB point extractions in 6 hour steps.
func wavegramProfile(DirectionConvention) Profile {
	return Profile{
		Name:   ProfileWavegram,
		Format: "json",
		Time: TimeSource{
			Start:  Field{Name: "Time", Strategy: PlainString},
			Window: Window{Width: 6 * time.Hour},
		},
		Horizon: 4 * day,
		Metrics: []Metric{
			{Name: "waveHeight", Kind: KindNumeric, Inputs: []Field{plain("Significant_height_of_combined_wind_waves_and_swell_surface")}},
			{Name: "waveDirection", Kind: KindDirection, Inputs: []Field{paren("Primary_wave_direction_surface")}},
			{Name: "wavePeriod", Kind: KindNumeric, Inputs: []Field{plain("Primary_wave_mean_period_surface")}},
			{Name: "windSpeed", Kind: KindNumeric, Inputs: []Field{plain("Wind_speed_surface")}},
			{Name: "windDirection", Kind: KindDirection, Inputs: []Field{paren("Wind_direction_from_which_blowing_surface")}},
			{Name: "swellPeriod", Kind: KindNumeric, Inputs: []Field{plain("Mean_period_of_swell_waves_ordered_sequence_of_data")}},
			{Name: "windWavePeriod", Kind: KindNumeric, Inputs: []Field{plain("Mean_period_of_wind_waves_surface")}},
			{Name: "windWaveDirection", Kind: KindDirection, Inputs: []Field{paren("Direction_of_wind_waves_surface")}},
			{Name: "swellDirection", Kind: KindDirection, Inputs: []Field{paren("Direction_of_swell_waves_ordered_sequence_of_data")}},
		},
	}
}

// wavegramCSVProfile reads CSV exports of wave and wind model output. Row
// times are window ends of 3 hour windows. Wind comes as u/v components in
// m/s and is plotted in km/h.
func wavegramCSVProfile(conv DirectionConvention) Profile {
	u, v := plain("wnd_ucmp_height_above_ground"), plain("wnd_vcmp_height_above_ground")
	return Profile{
		Name:   ProfileWavegramCSV,
		Format: "csv",
		Time: TimeSource{
			Start:  Field{Name: "Time", Strategy: PlainString},
			Window: Window{Offset: 3 * time.Hour, Width: 3 * time.Hour},
		},
		Horizon: 7 * day,
		Metrics: []Metric{
			{Name: "waveHeight", Kind: KindNumeric, Inputs: []Field{plain("sig_wav_ht_surface")}},
			{Name: "maxWaveHeight", Kind: KindNumeric, Inputs: []Field{plain("max_wav_ht_surface")}},
			{Name: "waveDirection", Kind: KindDirection, Inputs: []Field{plain("peak_wav_dir_surface")}, Convert: ReciprocalDirection},
			{Name: "windSpeed", Kind: KindNumeric, Inputs: []Field{u, v}, Convert: Speed(KmhPerMps)},
			{Name: "maxWindSpeed", Kind: KindNumeric, Inputs: []Field{u, v}, Convert: Gust(KmhPerMps, GustFactor)},
			{Name: "windDirection", Kind: KindDirection, Inputs: []Field{u, v}, Convert: Direction(conv)},
			{Name: "wavePeriod", Kind: KindNumeric, Inputs: []Field{plain("peak_wav_per_surface")}},
		},
	}
}
