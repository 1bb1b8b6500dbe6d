// Command normalize converts one raw forecast load into a dataset JSON file
// without going through Kafka. It uses the same decoders and normalization
// as the service, so its output can serve as a fixture for downstream tests.
//
// Usage:
//
//	go run ./cmd/normalize \
//	  -profile wavegram \
//	  -in internal/source/testdata/wavegram.json \
//	  -out data/wavegram_dataset.json \
//	  -built-at 2026-10-16T09:30:00Z
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/couchcryptid/forecast-normalizer/internal/source"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	profileName := flag.String("profile", domain.ProfileWavegramCSV, "chart profile")
	format := flag.String("format", "", "source format (yr, json, csv); defaults to the profile's format")
	modeName := flag.String("mode", string(domain.ModeStrict), "error mode (strict, skip, sentinel)")
	convName := flag.String("convention", string(domain.ConventionLiteral), "wind direction convention (literal, meteorological)")
	horizon := flag.Duration("horizon", 0, "forecast horizon override, 0 keeps the profile horizon")
	in := flag.String("in", "-", "raw load path, - for stdin")
	out := flag.String("out", "-", "dataset output path, - for stdout")
	builtAt := flag.String("built-at", "", "fixed RFC3339 build time for reproducible output")
	flag.Parse()

	conv, err := domain.ParseDirectionConvention(*convName)
	if err != nil {
		return err
	}
	mode, err := domain.ParseErrorMode(*modeName)
	if err != nil {
		return err
	}
	profile, err := domain.LookupProfile(*profileName, conv)
	if err != nil {
		return err
	}
	if *format == "" {
		*format = profile.Format
	}

	if *builtAt != "" {
		t, err := time.Parse(time.RFC3339, *builtAt)
		if err != nil {
			return fmt.Errorf("invalid -built-at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	payload, err := readInput(*in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *in, err)
	}

	records, err := source.Decode(*format, payload)
	if err != nil {
		return err
	}
	ds, err := domain.Normalize(records, profile, domain.Options{Mode: mode, Horizon: *horizon})
	if err != nil {
		return fmt.Errorf("normalize %s: %w", profile.Name, err)
	}

	if err := writeJSON(*out, ds); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	log.Printf("%s: %d records, %d rows, skipped %d beyond horizon, %d malformed",
		ds.ID, len(records), ds.Len(), ds.Skipped.Horizon, ds.Skipped.Malformed)
	printStats(ds)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(ds domain.Dataset) {
	names := make([]string, 0, len(ds.Stats))
	for name := range ds.Stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := ds.Stats[name]
		log.Printf("  %-24s n=%-3d min=%8.3f max=%8.3f mean=%8.3f", name, s.Count, s.Min, s.Max, s.Mean)
	}
}
