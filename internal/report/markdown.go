package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/pkg/logger"
)

// Writer renders run results to {YYYYMMDD}_report.md files
// ⭐ SSOT: S5 리포트 출력
type Writer struct {
	outputDir string
	logger    *logger.Logger
}

// NewWriter creates a new report writer
func NewWriter(outputDir string, log *logger.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		logger:    log.WithField("module", "report"),
	}
}

// FileName returns the report file name for an as-of date
func FileName(asOf time.Time) string {
	return asOf.Format("20060102") + "_report.md"
}

// Write renders result into the output directory and returns the file path
func (w *Writer) Write(result *contracts.RunResult) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}

	path := filepath.Join(w.outputDir, FileName(result.AsOf))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	if err := WriteMarkdown(file, result); err != nil {
		return "", err
	}

	w.logger.WithFields(map[string]interface{}{
		"path":    path,
		"records": len(result.Records),
	}).Info("Report written")

	return path, nil
}

// WriteMarkdown renders the candidate table, the deep-review section and
// the universe exclusions of one run
func WriteMarkdown(w io.Writer, result *contracts.RunResult) error {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# Laggard Screening Report (%s)\n\n", result.AsOf.Format("2006-01-02")))
	md.WriteString(fmt.Sprintf("- **Strategy**: %s\n", result.StrategyID))
	md.WriteString(fmt.Sprintf("- **Config Hash**: `%s`\n", shortHash(result.ConfigHash)))
	s := result.Summary
	md.WriteString(fmt.Sprintf("- **Securities**: %d (outside universe %d, excluded %d, ranked %d)\n",
		s.Total, s.OutsideUniverse, s.Excluded, s.Ranked))
	md.WriteString(fmt.Sprintf("- **Dispositions**: Recommend %d / Watch %d / Skip %d\n", s.Recommend, s.Watch, s.Skip))
	if s.LowConfidence > 0 || s.QualitativeUnavailable > 0 {
		md.WriteString(fmt.Sprintf("- **Data Gaps**: low confidence %d, qualitative unavailable %d\n",
			s.LowConfidence, s.QualitativeUnavailable))
	}
	md.WriteString("\n")
	md.WriteString("Quantitative score is split into two tracks: `Q(Price)` and `Q(Fund)`.\n\n")

	md.WriteString("## Candidate Table\n\n")
	writeTable(&md, result.Records)
	md.WriteString("\n")

	md.WriteString("## Top Recommendations\n\n")
	writeDeepReview(&md, result)

	writeUniverseExclusions(&md, result.Audit)

	_, err := io.WriteString(w, md.String())
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeTable(md *strings.Builder, records []contracts.CompositeRecord) {
	axes := contracts.QualitativeAxes()

	md.WriteString("|Rank|Code|Company|Quant|Q(Price)|Q(Fund)|Qual|Provisional|Excluded|Disposition|Reasons")
	for _, axis := range axes {
		md.WriteString("|" + contracts.AxisLabel(axis))
	}
	md.WriteString("|\n")
	md.WriteString("|---:|---|---|---:|---:|---:|---:|---:|---|---|---")
	for range axes {
		md.WriteString("|---:")
	}
	md.WriteString("|\n")

	for _, rec := range records {
		rank := "-"
		if rec.IsRanked() {
			rank = fmt.Sprintf("%d", rec.Rank)
		}
		excluded := "no"
		if rec.Exclusion.Excluded {
			excluded = "yes (" + rec.Exclusion.Reason() + ")"
		}

		md.WriteString(fmt.Sprintf("|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
			rank,
			rec.Code,
			escape(rec.Name),
			rec.Quantitative.Value,
			rec.Quantitative.Tracks[contracts.TrackPriceNow],
			rec.Quantitative.Tracks[contracts.TrackFundamentals],
			rec.QualitativeValue(),
			rec.Provisional,
			excluded,
			rec.Disposition,
			escape(strings.Join(rec.Reasons, "; ")),
		))
		for _, axis := range axes {
			cell := "-"
			if rec.Qualitative != nil {
				if score, ok := rec.Qualitative.AxisScore(axis); ok {
					cell = fmt.Sprintf("%d", score)
				}
			}
			md.WriteString("|" + cell)
		}
		md.WriteString("|\n")
	}
}

func writeDeepReview(md *strings.Builder, result *contracts.RunResult) {
	deep := result.DeepReviewRecords()
	if len(deep) == 0 {
		md.WriteString("No recommendations generated.\n\n")
		return
	}

	for _, rec := range deep {
		md.WriteString(fmt.Sprintf("### %d. %s %s - %s\n", rec.Rank, rec.Code, escape(rec.Name), rec.Disposition))
		md.WriteString(fmt.Sprintf("- Provisional: %s (quant %s + qual %s)\n",
			rec.Provisional, rec.Quantitative.Value, rec.QualitativeValue()))
		md.WriteString(fmt.Sprintf("- Reasons: %s\n", orNA(strings.Join(rec.Reasons, ", "))))
		md.WriteString(fmt.Sprintf("- Freshness: %s\n", freshnessLine(rec.Freshness)))

		evidence := evidenceFor(result, rec.Code)
		if len(evidence) == 0 {
			md.WriteString("- Evidence: N/A\n\n")
			continue
		}
		md.WriteString("- Evidence:\n")
		for _, ev := range evidence {
			line := fmt.Sprintf("  - [%s](%s) retrieved %s", escape(ev.Source), ev.Reference, ev.RetrievedAt.Format("2006-01-02"))
			if ev.Summary != "" {
				line += ": " + escape(ev.Summary)
			}
			md.WriteString(line + "\n")
		}
		md.WriteString("\n")
	}
}

// evidenceFor collects unique evidence of a security from the audit trail
func evidenceFor(result *contracts.RunResult, code string) []contracts.Evidence {
	seen := make(map[string]bool)
	out := make([]contracts.Evidence, 0)
	for _, e := range result.AuditFor(code) {
		for _, ev := range e.Evidence {
			if ev.Reference == "" || seen[ev.Reference] {
				continue
			}
			seen[ev.Reference] = true
			out = append(out, ev)
		}
	}
	return out
}

func writeUniverseExclusions(md *strings.Builder, entries []contracts.AuditEntry) {
	rows := make([]contracts.AuditEntry, 0)
	for _, e := range entries {
		if e.ScoreType == contracts.ScoreUniverseFilter {
			rows = append(rows, e)
		}
	}
	if len(rows) == 0 {
		return
	}

	md.WriteString("## Outside Universe\n\n")
	md.WriteString("|Code|Reason|\n")
	md.WriteString("|---|---|\n")
	for _, e := range rows {
		md.WriteString(fmt.Sprintf("|%s|%s|\n", e.Code, escape(e.Rationale)))
	}
	md.WriteString("\n")
}

func freshnessLine(r contracts.FreshnessReport) string {
	parts := make([]string, 0, len(r.Verdicts))
	for _, v := range r.Verdicts {
		parts = append(parts, fmt.Sprintf("%s %s", v.Category, v.State))
	}
	return orNA(strings.Join(parts, ", "))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// escape keeps table cells on one line
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
