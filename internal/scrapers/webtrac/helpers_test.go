package webtrac

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFixture(t testing.TB, name string) []byte {
	body, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return body
}

type listing struct {
	name  string
	class string
	date  string
	slots []string
	// booked slots are rendered as unavailable buttons
	booked []string
}

// resultsPage renders a results page in the same shape the reservation site uses,
// next and last control the pagination buttons (0 leaves them out).
func resultsPage(token string, next, last int, listings ...listing) []byte {
	var out strings.Builder
	out.WriteString("<html><body>")
	if token != "" {
		fmt.Fprintf(&out, `<input type="hidden" name="_csrf_token" value="%s" />`, token)
	}
	out.WriteString(`<table id="frwebsearch_output_table"><tbody>`)
	for _, l := range listings {
		class := l.class
		if class == "" {
			class = "Pickleball"
		}
		fmt.Fprintf(&out, `<tr>
			<td class="label-cell" data-title="Facility Description">%s</td>
			<td class="label-cell" data-title="Location Description">Doral Central Park</td>
			<td class="label-cell" data-title="Class Description">%s</td>
			<td class="label-cell" data-title="Date">%s</td>
			<td class="label-cell" data-title="Capacity">4</td>
		</tr>`, l.name, class, l.date)
		out.WriteString(`<tr><td class="cart-blocks">`)
		for _, slot := range l.slots {
			fmt.Fprintf(&out, `<a class="button cart-button success" data-tooltip="Book Now">%s</a>`, slot)
		}
		for _, slot := range l.booked {
			fmt.Fprintf(&out, `<a class="button cart-button error" data-tooltip="Unavailable"><span>%s</span></a>`, slot)
		}
		out.WriteString(`</td></tr>`)
	}
	out.WriteString(`</tbody></table>`)
	if next > 0 {
		fmt.Fprintf(&out, `<button type="button" data-click-set-value="%d">%d</button>`, next, next)
	}
	if last > 0 {
		fmt.Fprintf(&out, `<button type="button" class="paging__lastpage" data-click-set-value="%d">Last</button>`, last)
	}
	out.WriteString("</body></html>")
	return []byte(out.String())
}

func courtListings(date string, names ...string) []listing {
	out := make([]listing, len(names))
	for i, name := range names {
		out[i] = listing{
			name:  name,
			date:  date,
			slots: []string{"8:00 am - 9:00 am"},
		}
	}
	return out
}
