package webtrac

import (
	"context"
	"errors"
	"fmt"

	"courtwatch/internal/assert"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
)

const (
	report_paginator_run  = "paginator.run"
	report_paginator_page = "paginator.page"
)

type PaginationConfig struct {
	// DuplicateThreshold is the fraction of already seen listings on a page at or
	// above which the site is considered to be repeating itself.
	DuplicateThreshold float64
	MaxPages           int
	// KeepPages retains the raw body of every fetched page in the result.
	KeepPages bool
}

func DefaultPaginationConfig() PaginationConfig {
	return PaginationConfig{
		DuplicateThreshold: 0.5,
		MaxPages:           20,
	}
}

type StopReason string

const (
	StopEmpty      StopReason = "empty page"
	StopDuplicates StopReason = "duplicate page"
	StopLastPage   StopReason = "last page"
	StopMaxPages   StopReason = "page limit"
	StopFailure    StopReason = "failure"
	StopCanceled   StopReason = "canceled"
)

// PageFetcher is the part of Session the paginator depends on.
type PageFetcher interface {
	FetchPage(ctx context.Context, query SearchQuery, page int) ([]byte, error)
	SetToken(token string)
	RequestURLs() []string
}

type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %s", e.Page, e.Err.Error())
}

func (e PageError) Unwrap() error {
	return e.Err
}

// FetchResult is the deduplicated union of every page of one search.
type FetchResult struct {
	Query  SearchQuery
	Courts []courts.Court
	// Pages is the number of pages requested, including failed ones.
	Pages int
	// Partial is set when a page failed or the run was canceled after the first page.
	Partial    bool
	PageErrors []PageError
	Stop       StopReason
	// RequestURLs lists every url the session requested during the run.
	RequestURLs []string
	// RawPages holds the body of each fetched page when PaginationConfig.KeepPages is set.
	RawPages [][]byte
}

// Err joins the errors of all failed pages, nil for a complete run.
func (r FetchResult) Err() error {
	if len(r.PageErrors) == 0 {
		return nil
	}
	errs := make([]error, len(r.PageErrors))
	for i, pageErr := range r.PageErrors {
		errs[i] = pageErr
	}
	return errors.Join(errs...)
}

type Paginator struct {
	extractor Extractor
	config    PaginationConfig
	tel       telemetry.API
}

func NewPaginator(extractor Extractor, config PaginationConfig, tel telemetry.API) Paginator {
	assert.NotNil(tel)

	defaults := DefaultPaginationConfig()
	if config.DuplicateThreshold <= 0 || config.DuplicateThreshold > 1 {
		config.DuplicateThreshold = defaults.DuplicateThreshold
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaults.MaxPages
	}

	return Paginator{
		extractor: extractor,
		config:    config,
		tel:       telemetry.NewScopedAPI("webtrac", tel),
	}
}

// Run fetches pages in increasing order until one of the stop conditions holds.
//
// A failure on the first page is returned as an error. Later failures and
// cancellation between pages end the run early with a partial result and a nil
// error, so that the pages already fetched are not lost.
func (p Paginator) Run(ctx context.Context, fetcher PageFetcher, query SearchQuery) (result FetchResult, err error) {
	result.Query = query
	seen := map[courts.Fingerprint]struct{}{}
	parseFailures := 0

	defer func() {
		result.RequestURLs = fetcher.RequestURLs()
	}()

	for page := 1; ; page++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if page == 1 {
				return result, ctxErr
			}
			result.Partial = true
			result.Stop = StopCanceled
			result.PageErrors = append(result.PageErrors, PageError{Page: page, Err: ctxErr})
			return result, nil
		}

		result.Pages = page
		body, err := fetcher.FetchPage(ctx, query, page)
		if err != nil {
			if page == 1 {
				p.tel.ReportWarning(report_paginator_run, err, query.Date)
				result.Stop = StopFailure
				return result, err
			}
			result.Partial = true
			result.Stop = StopFailure
			if errors.Is(err, context.Canceled) {
				result.Stop = StopCanceled
			}
			result.PageErrors = append(result.PageErrors, PageError{Page: page, Err: err})
			p.tel.ReportWarning(report_paginator_run, "returning partial result", telemetry.KV{Key: "page", Value: page}, err)
			return result, nil
		}
		if p.config.KeepPages {
			result.RawPages = append(result.RawPages, body)
		}

		extracted, err := p.extractor.Extract(body, query.Date, page)
		if err != nil {
			result.Partial = true
			result.PageErrors = append(result.PageErrors, PageError{Page: page, Err: err})
			p.tel.ReportWarning(report_paginator_page, err, telemetry.KV{Key: "page", Value: page})
			parseFailures++
			if parseFailures >= 2 {
				result.Stop = StopFailure
				return result, nil
			}
			if page >= p.config.MaxPages {
				result.Stop = StopMaxPages
				return result, nil
			}
			continue
		}
		parseFailures = 0
		fetcher.SetToken(extracted.Token)

		if len(extracted.Courts) == 0 {
			result.Stop = StopEmpty
			return result, nil
		}

		duplicates := 0
		for _, court := range extracted.Courts {
			fingerprint := court.Fingerprint()
			if _, ok := seen[fingerprint]; ok {
				duplicates++
				continue
			}
			seen[fingerprint] = struct{}{}
			result.Courts = append(result.Courts, court)
		}

		fraction := float64(duplicates) / float64(len(extracted.Courts))
		p.tel.ReportDebug(
			report_paginator_page,
			telemetry.KV{Key: "page", Value: page},
			telemetry.KV{Key: "courts", Value: len(extracted.Courts)},
			telemetry.KV{Key: "duplicates", Value: duplicates},
		)
		if page > 1 && duplicates > 0 && fraction >= p.config.DuplicateThreshold {
			p.tel.ReportDebug(report_paginator_page, "page is mostly duplicates, stopping", page)
			result.Stop = StopDuplicates
			return result, nil
		}
		if extracted.Paging != nil && !extracted.Paging.MoreAfter(page) {
			result.Stop = StopLastPage
			return result, nil
		}
		if page >= p.config.MaxPages {
			p.tel.ReportWarning(report_paginator_run, "page limit reached", p.config.MaxPages, query.Date)
			result.Stop = StopMaxPages
			return result, nil
		}
	}
}
