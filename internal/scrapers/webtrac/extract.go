package webtrac

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"courtwatch/internal/assert"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
	"courtwatch/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extractor_extract = "extractor.extract"
	report_extractor_row     = "extractor.row"
	report_extractor_slot    = "extractor.slot"
)

type StatusPolicy string

const (
	// PolicyAny marks a court Available when at least one slot is available.
	PolicyAny StatusPolicy = "any"
	// PolicyMajority marks a court Available only when most of its slots are.
	PolicyMajority StatusPolicy = "majority"
)

func ParseStatusPolicy(value string) (StatusPolicy, error) {
	switch StatusPolicy(strings.ToLower(value)) {
	case "", PolicyAny:
		return PolicyAny, nil
	case PolicyMajority:
		return PolicyMajority, nil
	}
	return "", fmt.Errorf("unknown status policy %q (expected any or majority)", value)
}

type ExtractOptions struct {
	Policy StatusPolicy
	// MaintenanceMarkers are matched case-insensitively against the status cell and
	// slot tooltips of a listing.
	MaintenanceMarkers []string
}

func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Policy:             PolicyAny,
		MaintenanceMarkers: []string{"maintenance", "closed"},
	}
}

// Paging is what the pagination controls of a results page say.
type Paging struct {
	// HasNext is true when there is a button pointing to the page after the current one.
	HasNext bool
	// LastPage is the value of the "last page" button, 0 if there is none.
	LastPage int
}

// MoreAfter reports whether a page after current exists.
func (p Paging) MoreAfter(current int) bool {
	if p.HasNext {
		return true
	}
	return p.LastPage > current
}

// Page is everything extracted from one results page.
type Page struct {
	Courts []courts.Court
	// Token is the anti-forgery token embedded in the page, empty if absent.
	Token string
	// Paging is nil when the page has no pagination controls at all.
	Paging *Paging
}

type Extractor struct {
	opts ExtractOptions
	tel  telemetry.API
}

func NewExtractor(opts ExtractOptions, tel telemetry.API) Extractor {
	assert.NotNil(tel)
	if opts.Policy == "" {
		opts.Policy = PolicyAny
	}
	return Extractor{
		opts: opts,
		tel:  telemetry.NewScopedAPI("webtrac", tel),
	}
}

// Extract parses one page of search results. requestedDate (ISO) is used for listings
// that do not show their own date, page is the 1-based index of the page and only
// affects pagination detection.
//
// Missing fields fall back to defaults, a document with no listings yields an empty
// page. Only a body that is not html at all returns ErrParse.
func (e Extractor) Extract(body []byte, requestedDate string, page int) (Page, error) {
	if !htmlutil.LooksLikeHTML(body) {
		return Page{}, fmt.Errorf("%w: body has no markup (%d bytes)", ErrParse, len(body))
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}

	result := Page{
		Token:  doc.Find("input[name=_csrf_token]").AttrOr("value", ""),
		Paging: extractPaging(doc, page),
	}

	tables := doc.Find("table#frwebsearch_output_table")
	if tables.Length() == 0 {
		e.tel.ReportDebug(report_extractor_extract, "no result tables", telemetry.KV{Key: "page", Value: page})
		return result, nil
	}

	tables.Each(func(tableIdx int, table *goquery.Selection) {
		tbody := table.ChildrenFiltered("tbody").First()
		if tbody.Length() == 0 {
			e.tel.ReportDebug(report_extractor_extract, "table without tbody", tableIdx)
			return
		}
		tbody.ChildrenFiltered("tr").Each(func(rowIdx int, row *goquery.Selection) {
			if row.Find("td.cart-blocks").Length() > 0 {
				return
			}
			court, ok := e.extractCourt(row, requestedDate)
			if !ok {
				e.tel.ReportDebug(report_extractor_row, "skipped row", tableIdx, rowIdx)
				return
			}
			result.Courts = append(result.Courts, court)
		})
	})

	e.tel.ReportDebug(report_extractor_extract, "extracted courts", telemetry.KV{Key: "page", Value: page}, len(result.Courts))
	return result, nil
}

func cellByTitle(row *goquery.Selection, title string) *goquery.Selection {
	return row.Find(fmt.Sprintf(`td[data-title="%s"]`, title)).First()
}

func textOr(sel *goquery.Selection, fallback string) string {
	text := htmlutil.Text(sel)
	if text == "" {
		return fallback
	}
	return text
}

func (e Extractor) extractCourt(row *goquery.Selection, requestedDate string) (courts.Court, bool) {
	if row.Find("td.label-cell").Length() < 4 {
		return courts.Court{}, false
	}

	name := textOr(cellByTitle(row, "Facility Description"), "Unknown Court")
	classDescription := htmlutil.Text(cellByTitle(row, "Class Description"))

	sport := courts.SportPickleball
	if strings.Contains(strings.ToLower(classDescription), "tennis") ||
		strings.Contains(strings.ToLower(name), "tennis") {
		sport = courts.SportTennis
	}

	court := courts.Court{
		Name:     name,
		Sport:    sport,
		Location: textOr(cellByTitle(row, "Location Description"), "Unknown Location"),
		Capacity: textOr(cellByTitle(row, "Capacity"), "0"),
		Price:    htmlutil.Text(cellByTitle(row, "Price")),
		Date:     e.listingDate(row, requestedDate),
	}

	slotRow := row.Next()
	var tooltips []string
	if slotRow.Is("tr") {
		court.Slots, tooltips = e.extractSlots(slotRow, name)
	}

	statusText := htmlutil.Text(cellByTitle(row, "Status"))
	court.Status = e.inferStatus(court.Slots, append(tooltips, statusText))
	return court, true
}

var longDateLayouts = []string{
	"Monday, January 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"Jan 2, 2006",
}

func (e Extractor) listingDate(row *goquery.Selection, requestedDate string) string {
	cell := cellByTitle(row, "Date")
	if cell.Length() == 0 {
		return requestedDate
	}
	raw := cell.Find("span.dateblock").AttrOr("data-tooltip", "")
	if raw == "" {
		raw = htmlutil.Text(cell)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return requestedDate
	}

	date, err := courts.NormalizeDate(raw)
	if err == nil {
		return date
	}
	for _, layout := range longDateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return courts.FormatDate(parsed)
		}
	}
	e.tel.ReportWarning(report_extractor_row, fmt.Errorf("unrecognized listing date %q", raw), requestedDate)
	return requestedDate
}

func (e Extractor) extractSlots(slotRow *goquery.Selection, courtName string) ([]courts.TimeSlot, []string) {
	blocks := slotRow.Find("td.cart-blocks").First()
	if blocks.Length() == 0 {
		return nil, nil
	}

	var slots []courts.TimeSlot
	var tooltips []string
	blocks.Find("a.cart-button").Each(func(_ int, button *goquery.Selection) {
		tooltip := button.AttrOr("data-tooltip", "")
		if tooltip != "" {
			tooltips = append(tooltips, tooltip)
		}

		available := button.HasClass("success") && strings.Contains(tooltip, "Book Now")

		var rangeText string
		if available {
			rangeText = htmlutil.Text(button)
		} else {
			span := button.Find("span").First()
			if span.Length() == 0 {
				return
			}
			rangeText = htmlutil.Text(span)
		}

		start, end, err := courts.ParseTimeRange(rangeText)
		if err != nil {
			e.tel.ReportWarning(report_extractor_slot, err, courtName)
			return
		}

		status := courts.SlotUnavailable
		if available {
			status = courts.SlotAvailable
		}
		slots = append(slots, courts.TimeSlot{
			Start:  start,
			End:    end,
			Status: status,
		})
	})
	return slots, tooltips
}

func (e Extractor) inferStatus(slots []courts.TimeSlot, markerTexts []string) courts.Status {
	for _, text := range markerTexts {
		lower := strings.ToLower(text)
		for _, marker := range e.opts.MaintenanceMarkers {
			if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
				return courts.StatusMaintenance
			}
		}
	}
	if len(slots) == 0 {
		return courts.StatusUnknown
	}

	available := 0
	for _, slot := range slots {
		if slot.Status == courts.SlotAvailable {
			available++
		}
	}
	switch e.opts.Policy {
	case PolicyMajority:
		if available*2 > len(slots) {
			return courts.StatusAvailable
		}
	default:
		if available > 0 {
			return courts.StatusAvailable
		}
	}
	return courts.StatusBooked
}

func extractPaging(doc *goquery.Document, page int) *Paging {
	// the last page button carries a page number too, it only counts as LastPage
	buttons := doc.Find("button[data-click-set-value]:not(.paging__lastpage)")
	lastButton := doc.Find("button.paging__lastpage").First()
	if buttons.Length() == 0 && lastButton.Length() == 0 {
		return nil
	}

	paging := &Paging{}
	next := strconv.Itoa(page + 1)
	buttons.EachWithBreak(func(_ int, button *goquery.Selection) bool {
		if button.AttrOr("data-click-set-value", "") == next {
			paging.HasNext = true
			return false
		}
		return true
	})
	last, err := strconv.Atoi(strings.TrimSpace(lastButton.AttrOr("data-click-set-value", "")))
	if err == nil {
		paging.LastPage = last
	}
	return paging
}
