// Package domain normalizes raw marine and weather forecast records into
// aligned time series for meteogram and wavegram charts.
//
// # Data Sources
//
// Three provider shapes are handled, each described by a [Profile]:
//
//	yr.no XML forecasts, converted to JSON by the upstream collector. Every
//	time slot is an object whose metrics are nested attribute nodes:
//	  {"temperature": {"@attributes": {"unit": "celsius", "value": "4"}}}
//
//	JSON arrays of GRIB point extractions. Directions arrive as
//	parenthesized strings:
//	  {"Time": "2015-01-06 00:00:00 CST", "Wind_direction_from_which_blowing_surface": "(59.6033)"}
//
//	CSV exports of wave and wind model output. Headers carry the grid cell
//	as a prefix that differs per station:
//	  LatLon_14X16-11p0N-87p00W/sig_wav_ht_surface
//
// # Time Alignment
//
// Each record covers an observation window. The window start is the record
// time minus a profile offset and the window end is start plus the profile
// width (yr.no records carry both ends explicitly). The first accepted window
// anchors the dataset:
//
//	pointStart = (from + to) / 2
//	resolution = to - from
//
// Records whose window ends later than pointStart plus the profile horizon
// (4 days for yr.no and JSON, 7 days for CSV) are dropped. Timestamps are
// milliseconds since the Unix epoch in UTC.
//
// # Directions
//
// Degrees are classified into 16 compass sectors of 22.5° each. North covers
// d <= 11.25 or d > 348.75; every other sector includes its upper bound.
// Wind direction derived from u/v components follows the source convention
// |atan(u/v) - 90| unless the meteorological convention is selected, which
// uses atan2(-u, -v) in degrees.
//
// # Smoothing
//
// Series that only carry whole units (yr.no temperatures) are smoothed with a
// 3-point running mean walked from the last point to the first, never moving a
// point more than 0.5 from its original value. The original stays available
// in SamplePoint.Value for tooltips.
package domain
