package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><tr>
			<td class="label-cell wide" data-title="Facility Description">
				DCP   Tennis<br/>
				Court 1&nbsp;
			</td>
		</tr></table>`))
	require.NoError(t, err)

	cell := doc.Find("td")
	require.Equal(t, "DCP Tennis Court 1", Text(cell))
	require.Equal(t, "", Text(doc.Find("span.missing")))
	require.True(t, HasClass(cell.Nodes[0], "label-cell"))
	require.False(t, HasClass(cell.Nodes[0], "label"))
}

func TestLooksLikeHTML(t *testing.T) {
	require.True(t, LooksLikeHTML([]byte("  <html></html>")))
	require.False(t, LooksLikeHTML([]byte("{\"error\": true}")))
	require.False(t, LooksLikeHTML(nil))
}
