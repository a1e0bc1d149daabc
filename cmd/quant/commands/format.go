package commands

import (
	"fmt"
	"strings"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, meta map[string]string, order []string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	for _, k := range order {
		if v, ok := meta[k]; ok && v != "" {
			fmt.Printf("  %-10s: %s\n", k, v)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintSummary prints the disposition counts of a run
func PrintSummary(s contracts.RunSummary) {
	PrintKeyValue("Total", fmt.Sprint(s.Total), 14)
	PrintKeyValue("Ranked", fmt.Sprint(s.Ranked), 14)
	PrintKeyValue("Outside univ.", fmt.Sprint(s.OutsideUniverse), 14)
	PrintKeyValue("Excluded", fmt.Sprint(s.Excluded), 14)
	PrintKeyValue("Candidates", fmt.Sprint(s.Candidates), 14)
	PrintKeyValue("Deep review", fmt.Sprint(s.DeepReview), 14)
	PrintKeyValue("Recommend", fmt.Sprint(s.Recommend), 14)
	PrintKeyValue("Watch", fmt.Sprint(s.Watch), 14)
	PrintKeyValue("Skip", fmt.Sprint(s.Skip), 14)
	PrintKeyValue("Low confidence", fmt.Sprint(s.LowConfidence), 14)
}

// PrintCandidates prints ranked candidates (rank ≤ top N)
func PrintCandidates(records []contracts.CompositeRecord) {
	widths := []int{5, 6, 24, 8, 5, 11, 12}
	PrintTableHeader([]string{"Rank", "Code", "Name", "Quant", "Qual", "Provisional", "Disposition"}, widths)

	for _, r := range records {
		if !r.Candidate {
			continue
		}
		qual := "-"
		if r.Qualitative != nil {
			qual = fmt.Sprint(r.Qualitative.Value)
		}
		name := r.Name
		if len([]rune(name)) > 12 {
			name = string([]rune(name)[:12])
		}
		PrintTableRow([]string{
			fmt.Sprint(r.Rank),
			r.Code,
			name,
			r.Quantitative.Value.String(),
			qual,
			r.Provisional.String(),
			string(r.Disposition),
		}, widths)
	}
}
