package s0_data

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// DisclosureItem is one row of a timely-disclosure list page
type DisclosureItem struct {
	Code        string
	Company     string
	Title       string
	Link        string
	PublishedAt time.Time
}

// Evidence converts the row to disclosure evidence
func (d DisclosureItem) Evidence() contracts.Evidence {
	ref := d.Link
	if ref == "" {
		ref = fmt.Sprintf("disclosure:%s:%s", d.Code, d.PublishedAt.Format("200601021504"))
	}
	return contracts.Evidence{
		Source:      "timely_disclosure",
		Reference:   ref,
		RetrievedAt: d.PublishedAt,
		Summary:     d.Title,
		Category:    contracts.SourceDisclosure,
	}
}

// ParseDisclosureHTML reads a saved disclosure list page.
// Rows carry time, code, company and a title cell with a link; cells are found
// by their kjTime/kjCode/kjName/kjTitle classes, falling back to column order.
// date gives the calendar day of the page; relative links resolve against baseURL.
func ParseDisclosureHTML(r io.Reader, date time.Time, baseURL string) ([]DisclosureItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse disclosure html: %w", err)
	}

	var base *url.URL
	if baseURL != "" {
		base, err = url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
	}

	items := make([]DisclosureItem, 0)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		pick := func(class string, pos int) *goquery.Selection {
			if s := row.Find("td." + class); s.Length() > 0 {
				return s.First()
			}
			return cells.Eq(pos)
		}

		code := normalizeCode(strings.TrimSpace(pick("kjCode", 1).Text()))
		if code == "" {
			return
		}

		titleCell := pick("kjTitle", 3)
		item := DisclosureItem{
			Code:        code,
			Company:     strings.TrimSpace(pick("kjName", 2).Text()),
			Title:       strings.TrimSpace(titleCell.Text()),
			PublishedAt: withClock(date, strings.TrimSpace(pick("kjTime", 0).Text())),
		}

		if href, ok := titleCell.Find("a").Attr("href"); ok {
			item.Link = resolveLink(base, strings.TrimSpace(href))
		}

		items = append(items, item)
	})

	return items, nil
}

// AttachDisclosures returns copies of records with matching disclosure
// evidence appended and the disclosure timestamp advanced
func AttachDisclosures(records []contracts.SecurityRecord, items []DisclosureItem) []contracts.SecurityRecord {
	byCode := make(map[string][]DisclosureItem)
	for _, it := range items {
		byCode[it.Code] = append(byCode[it.Code], it)
	}

	out := make([]contracts.SecurityRecord, len(records))
	for i, rec := range records {
		matched := byCode[rec.Code]
		if len(matched) == 0 {
			out[i] = rec
			continue
		}

		overlay := contracts.SecurityRecord{
			Code:            rec.Code,
			SourceUpdatedAt: map[contracts.SourceCategory]time.Time{},
		}
		for _, it := range matched {
			overlay.Disclosures = append(overlay.Disclosures, it.Evidence())
			if cur, ok := overlay.SourceUpdatedAt[contracts.SourceDisclosure]; !ok || it.PublishedAt.After(cur) {
				overlay.SourceUpdatedAt[contracts.SourceDisclosure] = it.PublishedAt
			}
		}

		merged := cloneRecord(rec)
		overlayRecord(&merged, overlay)
		out[i] = merged
	}
	return out
}

// LoadDisclosureHTML parses a page and attaches its rows to records
func LoadDisclosureHTML(r io.Reader, records []contracts.SecurityRecord, date time.Time, baseURL string) ([]contracts.SecurityRecord, int, error) {
	items, err := ParseDisclosureHTML(r, date, baseURL)
	if err != nil {
		return nil, 0, err
	}
	return AttachDisclosures(records, items), len(items), nil
}

// normalizeCode: 5자리 공시 코드(72030) → 4자리 종목 코드(7203)
func normalizeCode(code string) string {
	if len(code) == 5 && strings.HasSuffix(code, "0") {
		return code[:4]
	}
	return code
}

func withClock(date time.Time, hhmm string) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func resolveLink(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
