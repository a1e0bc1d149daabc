package s0_data

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// InputPaths locates the files of one screening run
type InputPaths struct {
	DataDir           string   // directory searched for the newest screening CSV
	CSVPath           string   // explicit CSV (skips DataDir resolution)
	SnapshotPaths     []string // JSON record overlays merged over the CSV
	QualitativePath   string   // axis sheet (optional)
	DisclosureDir     string   // saved disclosure list pages (optional)
	DisclosureBaseURL string
}

// Inputs are the materialized records of one run
type Inputs struct {
	AsOf        time.Time
	CSVPath     string
	Records     []contracts.SecurityRecord
	Qualitative map[string][]contracts.QualitativeAxisScore
	Disclosures int
}

// LoadInputs resolves the as-of date and reads every configured source.
// A non-zero asOf overrides the date derived from the CSV file.
// Disclosure pages dated after the as-of date are ignored.
func LoadInputs(paths InputPaths, asOf time.Time, loc *time.Location) (*Inputs, error) {
	if loc == nil {
		loc = time.UTC
	}

	in := &Inputs{CSVPath: paths.CSVPath}
	if in.CSVPath == "" {
		if paths.DataDir == "" {
			return nil, fmt.Errorf("either a CSV path or a data directory is required")
		}
		resolved, path, err := ResolveAsOf(paths.DataDir, loc)
		if err != nil {
			return nil, fmt.Errorf("resolve as-of: %w", err)
		}
		in.CSVPath = path
		if asOf.IsZero() {
			asOf = resolved
		}
	} else if asOf.IsZero() {
		date, ok := DateFromName(filepath.Base(in.CSVPath), loc)
		if !ok {
			info, err := os.Stat(in.CSVPath)
			if err != nil {
				return nil, fmt.Errorf("stat screening csv: %w", err)
			}
			m := info.ModTime().In(loc)
			date = time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, loc)
		}
		asOf = date
	}
	d := asOf.In(loc)
	in.AsOf = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)

	records, err := LoadScreeningCSVFile(in.CSVPath, in.AsOf)
	if err != nil {
		return nil, err
	}

	overlays := make([][]contracts.SecurityRecord, 0, len(paths.SnapshotPaths))
	for _, p := range paths.SnapshotPaths {
		snap, err := LoadSnapshotFile(p)
		if err != nil {
			return nil, err
		}
		overlays = append(overlays, snap)
	}
	if len(overlays) > 0 {
		records = MergeRecords(records, overlays...)
	}

	if paths.DisclosureDir != "" {
		records, in.Disclosures, err = attachDisclosureDir(paths.DisclosureDir, paths.DisclosureBaseURL, records, in.AsOf, loc)
		if err != nil {
			return nil, err
		}
	}
	in.Records = records

	if paths.QualitativePath != "" {
		in.Qualitative, err = LoadQualitativeFile(paths.QualitativePath)
		if err != nil {
			return nil, err
		}
	}

	return in, nil
}

// attachDisclosureDir reads *.html pages in name order.
// Undated pages are taken as published on asOf.
func attachDisclosureDir(dir, baseURL string, records []contracts.SecurityRecord, asOf time.Time, loc *time.Location) ([]contracts.SecurityRecord, int, error) {
	var pages []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !d.IsDir() && (ext == ".html" || ext == ".htm") {
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(pages)

	total := 0
	for _, page := range pages {
		date, ok := DateFromName(filepath.Base(page), loc)
		if !ok {
			date = asOf
		}
		if date.After(asOf) {
			continue
		}

		f, err := os.Open(page)
		if err != nil {
			return nil, 0, fmt.Errorf("open disclosure page: %w", err)
		}
		var n int
		records, n, err = LoadDisclosureHTML(f, records, date, baseURL)
		f.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", page, err)
		}
		total += n
	}
	return records, total, nil
}
