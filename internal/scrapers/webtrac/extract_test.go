package webtrac

import (
	"errors"
	"sort"
	"testing"

	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractTwoCourts(t *testing.T) {
	rec := &telemetry.RecordingAPI{}
	extractor := NewExtractor(DefaultExtractOptions(), rec)

	page, err := extractor.Extract(readFixture(t, "two_courts.html"), "2025-07-12", 1)
	require.NoError(t, err)
	require.Equal(t, "tok-page-1", page.Token)
	require.Nil(t, page.Paging)

	expected := []courts.Court{
		{
			Name:     "DCP Tennis Court 1",
			Sport:    courts.SportTennis,
			Location: "Doral Central Park",
			Capacity: "4",
			Price:    "$10.00",
			Date:     "2025-07-12",
			Status:   courts.StatusAvailable,
			Slots: []courts.TimeSlot{
				{Start: "08:00", End: "09:00", Status: courts.SlotAvailable},
				{Start: "09:00", End: "10:00", Status: courts.SlotUnavailable},
			},
		},
		{
			Name:     "Doral Legacy Pickleball Court 3",
			Sport:    courts.SportPickleball,
			Location: "Doral Legacy Park",
			Capacity: "4",
			Date:     "2025-07-12",
			Status:   courts.StatusBooked,
			Slots: []courts.TimeSlot{
				{Start: "18:00", End: "19:00", Status: courts.SlotUnavailable},
				{Start: "19:00", End: "20:00", Status: courts.SlotUnavailable},
			},
		},
	}
	if diff := cmp.Diff(expected, page.Courts); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, rec.Reports("warning", ""))
}

func TestFingerprintStableAcrossMarkup(t *testing.T) {
	extractor := NewExtractor(DefaultExtractOptions(), &telemetry.RecordingAPI{})

	fingerprints := func(name string) []string {
		page, err := extractor.Extract(readFixture(t, name), "2025-07-12", 1)
		require.NoError(t, err)
		require.NotEmpty(t, page.Courts)
		var out []string
		for _, fingerprint := range page.Courts[0].Fingerprints() {
			out = append(out, fingerprint.String())
		}
		sort.Strings(out)
		return out
	}

	require.Equal(t, fingerprints("two_courts.html"), fingerprints("reordered.html"))
}

func TestExtractDegradesGracefully(t *testing.T) {
	rec := &telemetry.RecordingAPI{}
	extractor := NewExtractor(DefaultExtractOptions(), rec)

	body := []byte(`<html><body><table id="frwebsearch_output_table"><tbody>
		<tr>
			<td class="label-cell" data-title="Something">x</td>
			<td class="label-cell" data-title="Other">y</td>
			<td class="label-cell" data-title="Class Description">Pickleball</td>
			<td class="label-cell" data-title="Date">not a date</td>
		</tr>
		<tr><td class="cart-blocks">
			<a class="cart-button success" data-tooltip="Book Now">whenever</a>
			<a class="cart-button error"></a>
		</td></tr>
		<tr><td class="label-cell">too</td><td class="label-cell">few</td></tr>
	</tbody></table></body></html>`)

	page, err := extractor.Extract(body, "2025-07-13", 2)
	require.NoError(t, err)
	require.Len(t, page.Courts, 1)

	court := page.Courts[0]
	require.Equal(t, "Unknown Court", court.Name)
	require.Equal(t, "Unknown Location", court.Location)
	require.Equal(t, "0", court.Capacity)
	require.Equal(t, "", court.Price)
	require.Equal(t, "2025-07-13", court.Date)
	require.Equal(t, courts.SportPickleball, court.Sport)
	require.Empty(t, court.Slots)
	require.Equal(t, courts.StatusUnknown, court.Status)

	require.Len(t, rec.Reports("warning", report_extractor_slot), 1)
	require.Len(t, rec.Reports("warning", report_extractor_row), 1)
}

func TestExtractEmptyAndInvalid(t *testing.T) {
	extractor := NewExtractor(DefaultExtractOptions(), &telemetry.RecordingAPI{})

	page, err := extractor.Extract([]byte("<html><body><p>No results found.</p></body></html>"), "2025-07-12", 1)
	require.NoError(t, err)
	require.Empty(t, page.Courts)

	_, err = extractor.Extract([]byte("upstream connect error"), "2025-07-12", 1)
	require.True(t, errors.Is(err, ErrParse))

	_, err = extractor.Extract(nil, "2025-07-12", 1)
	require.True(t, errors.Is(err, ErrParse))
}

func TestInferStatus(t *testing.T) {
	slots := func(available, unavailable int) []courts.TimeSlot {
		var out []courts.TimeSlot
		for i := 0; i < available; i++ {
			out = append(out, courts.TimeSlot{Status: courts.SlotAvailable})
		}
		for i := 0; i < unavailable; i++ {
			out = append(out, courts.TimeSlot{Status: courts.SlotUnavailable})
		}
		return out
	}

	anyPolicy := NewExtractor(DefaultExtractOptions(), &telemetry.RecordingAPI{})
	majority := NewExtractor(ExtractOptions{
		Policy:             PolicyMajority,
		MaintenanceMarkers: []string{"resurfacing"},
	}, &telemetry.RecordingAPI{})

	cases := []struct {
		extractor Extractor
		slots     []courts.TimeSlot
		markers   []string
		expected  courts.Status
	}{
		{extractor: anyPolicy, slots: slots(1, 3), expected: courts.StatusAvailable},
		{extractor: anyPolicy, slots: slots(0, 3), expected: courts.StatusBooked},
		{extractor: anyPolicy, slots: nil, expected: courts.StatusUnknown},
		{extractor: anyPolicy, slots: slots(2, 0), markers: []string{"Closed for the holiday"}, expected: courts.StatusMaintenance},
		{extractor: majority, slots: slots(1, 3), expected: courts.StatusBooked},
		{extractor: majority, slots: slots(3, 1), expected: courts.StatusAvailable},
		{extractor: majority, slots: slots(2, 2), expected: courts.StatusBooked},
		{extractor: majority, slots: slots(2, 0), markers: []string{"Court RESURFACING"}, expected: courts.StatusMaintenance},
		{extractor: majority, slots: slots(2, 0), markers: []string{"Closed"}, expected: courts.StatusAvailable},
	}

	for i, test := range cases {
		require.Equal(t, test.expected, test.extractor.inferStatus(test.slots, test.markers), "case %d", i)
	}
}

func TestExtractPaging(t *testing.T) {
	extractor := NewExtractor(DefaultExtractOptions(), &telemetry.RecordingAPI{})

	cases := []struct {
		body     []byte
		page     int
		expected *Paging
		more     bool
	}{
		{body: resultsPage("", 2, 5, courtListings("07/12/2025", "a")...), page: 1, expected: &Paging{HasNext: true, LastPage: 5}, more: true},
		{body: resultsPage("", 0, 5, courtListings("07/12/2025", "a")...), page: 4, expected: &Paging{LastPage: 5}, more: true},
		{body: resultsPage("", 0, 5, courtListings("07/12/2025", "a")...), page: 5, expected: &Paging{LastPage: 5}, more: false},
		{body: resultsPage("", 3, 0, courtListings("07/12/2025", "a")...), page: 3, expected: &Paging{}, more: false},
		{body: resultsPage("", 0, 0, courtListings("07/12/2025", "a")...), page: 1, expected: nil},
	}

	for i, test := range cases {
		page, err := extractor.Extract(test.body, "2025-07-12", test.page)
		require.NoError(t, err)
		require.Equal(t, test.expected, page.Paging, "case %d", i)
		if page.Paging != nil {
			require.Equal(t, test.more, page.Paging.MoreAfter(test.page), "case %d", i)
		}
	}
}

func TestParseStatusPolicy(t *testing.T) {
	policy, err := ParseStatusPolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyAny, policy)

	policy, err = ParseStatusPolicy("Majority")
	require.NoError(t, err)
	require.Equal(t, PolicyMajority, policy)

	_, err = ParseStatusPolicy("most")
	require.Error(t, err)
}
