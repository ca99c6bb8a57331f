package webtrac

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages    map[int][]byte
	failures map[int]error
	// cancel is called right after the given page is served
	cancelAfter int
	cancel      context.CancelFunc

	requested []int
	tokens    []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, query SearchQuery, page int) ([]byte, error) {
	f.requested = append(f.requested, page)
	if err, ok := f.failures[page]; ok {
		return nil, err
	}
	body, ok := f.pages[page]
	if !ok {
		return resultsPage("", 0, 0), nil
	}
	if f.cancel != nil && page == f.cancelAfter {
		f.cancel()
	}
	return body, nil
}

func (f *fakeFetcher) SetToken(token string) {
	f.tokens = append(f.tokens, token)
}

func (f *fakeFetcher) RequestURLs() []string {
	var out []string
	for _, page := range f.requested {
		out = append(out, fmt.Sprintf("https://example.test/search.html?page=%d", page))
	}
	return out
}

func newTestPaginator(config PaginationConfig) (Paginator, *telemetry.RecordingAPI) {
	rec := &telemetry.RecordingAPI{}
	return NewPaginator(NewExtractor(DefaultExtractOptions(), rec), config, rec), rec
}

var testQuery = SearchQuery{Date: "2025-07-12"}

func requireUniqueKeys(t testing.TB, list []courts.Court) {
	seen := map[courts.Fingerprint]bool{}
	for _, court := range list {
		require.False(t, seen[court.Fingerprint()], "duplicate %s", court.Fingerprint())
		seen[court.Fingerprint()] = true
	}
}

func TestPaginationStopsOnDuplicatePage(t *testing.T) {
	paginator, _ := newTestPaginator(DefaultPaginationConfig())

	date := "07/12/2025"
	fetcher := &fakeFetcher{pages: map[int][]byte{
		1: resultsPage("t1", 0, 0, courtListings(date, "Court 1", "Court 2", "Court 3")...),
		2: resultsPage("t2", 0, 0, courtListings(date, "Court 4", "Court 5", "Court 6", "Court 7")...),
		// two of the four listings repeat page 2
		3: resultsPage("t3", 0, 0, courtListings(date, "Court 6", "Court 7", "Court 8", "Court 9")...),
		4: resultsPage("t4", 0, 0, courtListings(date, "Court 10")...),
	}}

	result, err := paginator.Run(context.Background(), fetcher, testQuery)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, fetcher.requested)
	require.Equal(t, StopDuplicates, result.Stop)
	require.False(t, result.Partial)
	require.Len(t, result.Courts, 9)
	requireUniqueKeys(t, result.Courts)
	require.Equal(t, []string{"t1", "t2", "t3"}, fetcher.tokens)
	require.Len(t, result.RequestURLs, 3)
}

func TestPaginationBelowThresholdContinues(t *testing.T) {
	paginator, _ := newTestPaginator(DefaultPaginationConfig())

	date := "07/12/2025"
	fetcher := &fakeFetcher{pages: map[int][]byte{
		1: resultsPage("", 0, 0, courtListings(date, "Court 1", "Court 2", "Court 3")...),
		2: resultsPage("", 0, 0, courtListings(date, "Court 3", "Court 4", "Court 5")...),
	}}

	result, err := paginator.Run(context.Background(), fetcher, testQuery)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, fetcher.requested)
	require.Equal(t, StopEmpty, result.Stop)
	require.Len(t, result.Courts, 5)
	requireUniqueKeys(t, result.Courts)
}

func TestPaginationPartialFailure(t *testing.T) {
	paginator, rec := newTestPaginator(DefaultPaginationConfig())

	timeout := &FetchError{Kind: FailureTimeout, Op: "page 2", Err: context.DeadlineExceeded}
	fetcher := &fakeFetcher{
		pages: map[int][]byte{
			1: resultsPage("", 2, 0, courtListings("07/12/2025", "Court 1", "Court 2", "Court 3", "Court 4", "Court 5")...),
		},
		failures: map[int]error{2: timeout},
	}

	result, err := paginator.Run(context.Background(), fetcher, testQuery)
	require.NoError(t, err)
	require.True(t, result.Partial)
	require.Equal(t, StopFailure, result.Stop)
	require.Len(t, result.Courts, 5)
	require.True(t, errors.Is(result.Err(), ErrTimeout))
	require.True(t, IsNetworkFailure(result.Err()))
	require.Len(t, rec.Reports("warning", report_paginator_run), 1)
}

func TestPaginationFirstPageFailure(t *testing.T) {
	paginator, _ := newTestPaginator(DefaultPaginationConfig())

	blocked := &FetchError{Kind: FailureBlocked, Op: "page 1", Status: 403}
	fetcher := &fakeFetcher{failures: map[int]error{1: blocked}}

	result, err := paginator.Run(context.Background(), fetcher, testQuery)
	require.Error(t, err)
	require.True(t, IsChallengeFailure(err))
	require.Empty(t, result.Courts)
	require.Equal(t, []int{1}, fetcher.requested)
}

func TestPaginationLimits(t *testing.T) {
	date := "07/12/2025"

	t.Run("max pages", func(t *testing.T) {
		paginator, _ := newTestPaginator(PaginationConfig{MaxPages: 3})
		pages := map[int][]byte{}
		for i := 1; i <= 5; i++ {
			pages[i] = resultsPage("", 0, 0, courtListings(date, fmt.Sprintf("Court %d", i))...)
		}
		fetcher := &fakeFetcher{pages: pages}

		result, err := paginator.Run(context.Background(), fetcher, testQuery)
		require.NoError(t, err)
		require.Equal(t, StopMaxPages, result.Stop)
		require.Equal(t, 3, result.Pages)
		require.Len(t, result.Courts, 3)
	})

	t.Run("last page", func(t *testing.T) {
		paginator, _ := newTestPaginator(DefaultPaginationConfig())
		fetcher := &fakeFetcher{pages: map[int][]byte{
			1: resultsPage("", 2, 2, courtListings(date, "Court 1")...),
			2: resultsPage("", 0, 2, courtListings(date, "Court 2")...),
			3: resultsPage("", 0, 0, courtListings(date, "Court 3")...),
		}}

		result, err := paginator.Run(context.Background(), fetcher, testQuery)
		require.NoError(t, err)
		require.Equal(t, StopLastPage, result.Stop)
		require.Equal(t, []int{1, 2}, fetcher.requested)
	})
}

func TestPaginationParseFailureContinues(t *testing.T) {
	paginator, _ := newTestPaginator(PaginationConfig{KeepPages: true})

	fetcher := &fakeFetcher{pages: map[int][]byte{
		1: resultsPage("", 0, 0, courtListings("07/12/2025", "Court 1")...),
		2: []byte("upstream reset"),
		3: resultsPage("", 0, 0, courtListings("07/12/2025", "Court 3")...),
	}}

	result, err := paginator.Run(context.Background(), fetcher, testQuery)
	require.NoError(t, err)
	require.True(t, result.Partial)
	require.True(t, errors.Is(result.Err(), ErrParse))
	require.Len(t, result.Courts, 2)
	require.Len(t, result.RawPages, 4)
	require.Equal(t, StopEmpty, result.Stop)
}

func TestPaginationCanceledBetweenPages(t *testing.T) {
	paginator, _ := newTestPaginator(DefaultPaginationConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		pages: map[int][]byte{
			1: resultsPage("", 2, 0, courtListings("07/12/2025", "Court 1", "Court 2")...),
			2: resultsPage("", 3, 0, courtListings("07/12/2025", "Court 3")...),
		},
		cancelAfter: 1,
		cancel:      cancel,
	}

	result, err := paginator.Run(ctx, fetcher, testQuery)
	require.NoError(t, err)
	require.True(t, result.Partial)
	require.Equal(t, StopCanceled, result.Stop)
	require.Len(t, result.Courts, 2)
	require.Equal(t, []int{1}, fetcher.requested)
	require.True(t, errors.Is(result.Err(), context.Canceled))
}
