package webtrac

import (
	"context"

	"courtwatch/internal/assert"
	"courtwatch/internal/components/telemetry"
)

const report_scraper_fetch = "scraper.fetch"

// Scraper runs searches against the reservation site, every call to Fetch gets its
// own Session so concurrent searches never share cookies or tokens.
type Scraper struct {
	session   SessionConfig
	paginator Paginator
	base      telemetry.API
	tel       telemetry.API
}

func NewScraper(session SessionConfig, extract ExtractOptions, pagination PaginationConfig, tel telemetry.API) Scraper {
	assert.NotNil(tel)

	return Scraper{
		session:   session,
		paginator: NewPaginator(NewExtractor(extract, tel), pagination, tel),
		base:      tel,
		tel:       telemetry.NewScopedAPI("webtrac", tel),
	}
}

// Fetch runs one paginated search, see Paginator.Run for how failures are reported.
func (s Scraper) Fetch(ctx context.Context, query SearchQuery) (FetchResult, error) {
	session, err := NewSession(s.session, s.base)
	if err != nil {
		s.tel.ReportBroken(report_scraper_fetch, err)
		return FetchResult{Query: query}, err
	}
	result, err := s.paginator.Run(ctx, session, query)
	if err != nil {
		return result, err
	}
	s.tel.ReportCount(report_scraper_fetch, int64(len(result.Courts)))
	return result, nil
}
