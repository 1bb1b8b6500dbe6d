// Command validate checks dataset JSON files produced by the normalizer or by
// cmd/normalize. Every file is decoded and checked for column alignment and
// grid regularity. When -raw is given, the raw load is normalized again and
// the result is compared to the first dataset file.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw internal/source/testdata/wavegram.json -profile wavegram \
//	  data/wavegram_dataset.json
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/couchcryptid/forecast-normalizer/internal/source"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawPath := flag.String("raw", "", "raw load to re-normalize and compare against the first dataset")
	profileName := flag.String("profile", "", "profile used with -raw; defaults to the dataset's profile")
	format := flag.String("format", "", "source format used with -raw")
	modeName := flag.String("mode", string(domain.ModeStrict), "error mode used with -raw")
	convName := flag.String("convention", string(domain.ConventionLiteral), "direction convention used with -raw")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	opts := rebuildOptions{raw: *rawPath, profile: *profileName, format: *format, mode: *modeName, convention: *convName}
	os.Exit(run(flag.Args(), opts))
}

type rebuildOptions struct {
	raw, profile, format, mode, convention string
}

func run(paths []string, opts rebuildOptions) int {
	fmt.Println("=== Forecast Dataset Validation ===")
	fmt.Println()

	datasets := make([]domain.Dataset, 0, len(paths))
	load := &phase{name: "Decode dataset files"}
	for _, path := range paths {
		ds, err := loadDataset(path)
		if err != nil {
			load.errorf("%s: %v", path, err)
			continue
		}
		datasets = append(datasets, ds)
	}

	phases := []*phase{load, validateInvariants(datasets)}
	if opts.raw != "" && len(datasets) > 0 {
		phases = append(phases, validateRebuild(datasets[0], opts))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, ds := range datasets {
		fmt.Printf("%s: %d rows, %d series, %d direction, %d label\n",
			ds.ID, ds.Len(), len(ds.Series), len(ds.Directions), len(ds.Labels))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadDataset(path string) (domain.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Dataset{}, err
	}
	return domain.DecodeDataset(data)
}

func validateInvariants(datasets []domain.Dataset) *phase {
	p := &phase{name: "Dataset invariants"}
	for _, ds := range datasets {
		if err := ds.Validate(); err != nil {
			p.errorf("%s: %v", ds.ID, err)
		}
		if ds.Len() == 0 {
			p.errorf("%s: no rows", ds.ID)
		}
	}
	return p
}

// validateRebuild normalizes the raw load again at the dataset's build time
// and diffs the result.
func validateRebuild(want domain.Dataset, opts rebuildOptions) *phase {
	p := &phase{name: "Rebuild from raw load"}

	name := opts.profile
	if name == "" {
		name = want.Profile
	}
	conv, err := domain.ParseDirectionConvention(opts.convention)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	mode, err := domain.ParseErrorMode(opts.mode)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	profile, err := domain.LookupProfile(name, conv)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	format := opts.format
	if format == "" {
		format = profile.Format
	}

	payload, err := os.ReadFile(opts.raw)
	if err != nil {
		p.errorf("read raw load: %v", err)
		return p
	}
	records, err := source.Decode(format, payload)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	domain.SetClock(clockwork.NewFakeClockAt(want.BuiltAt))
	defer domain.SetClock(nil)

	got, err := domain.Normalize(records, profile, domain.Options{Mode: mode, Horizon: time.Duration(want.Horizon) * time.Millisecond})
	if err != nil {
		p.errorf("normalize: %v", err)
		return p
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		p.errorf("rebuilt dataset differs (-file +rebuilt):\n%s", diff)
	}
	return p
}
