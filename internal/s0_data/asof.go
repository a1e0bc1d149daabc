package s0_data

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 파일명 날짜 패턴: YYYYMMDD, YYYY-MM-DD
var asOfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(20\d{2})(\d{2})(\d{2})`),
	regexp.MustCompile(`(20\d{2})-(\d{2})-(\d{2})`),
}

type csvCandidate struct {
	path    string
	date    time.Time
	modTime time.Time
	dated   bool
}

// ResolveAsOf finds the as-of date from the newest CSV under dir.
// Dated file names win (ties broken by mtime, then path); otherwise the
// newest modification time is used. Dates are returned at midnight in loc.
func ResolveAsOf(dir string, loc *time.Location) (time.Time, string, error) {
	if loc == nil {
		loc = time.UTC
	}

	var candidates []csvCandidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		c := csvCandidate{path: path, modTime: info.ModTime()}
		if date, ok := DateFromName(filepath.Base(path), loc); ok {
			c.date = date
			c.dated = true
		}
		candidates = append(candidates, c)
		return nil
	})
	if err != nil {
		return time.Time{}, "", fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(candidates) == 0 {
		return time.Time{}, "", fmt.Errorf("no CSV files found under %s", dir)
	}

	dated := make([]csvCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.dated {
			dated = append(dated, c)
		}
	}

	if len(dated) > 0 {
		sort.Slice(dated, func(i, j int) bool {
			a, b := dated[i], dated[j]
			if !a.date.Equal(b.date) {
				return a.date.Before(b.date)
			}
			if !a.modTime.Equal(b.modTime) {
				return a.modTime.Before(b.modTime)
			}
			return a.path < b.path
		})
		best := dated[len(dated)-1]
		return best.date, best.path, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.modTime.Equal(b.modTime) {
			return a.modTime.Before(b.modTime)
		}
		return a.path < b.path
	})
	latest := candidates[len(candidates)-1]
	m := latest.modTime.In(loc)
	return time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, loc), latest.path, nil
}

// DateFromName extracts the first valid date embedded in a file name
func DateFromName(name string, loc *time.Location) (time.Time, bool) {
	for _, re := range asOfPatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])

		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
		// time.Date normalizes 2026-02-30 → 03-02; reject it
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
