// client.go holds the http session against the WebTrac reservation site, it knows
// nothing about how results are paginated or what they contain.

package webtrac

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"courtwatch/internal/assert"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_session_warm_up    = "session.warm-up"
	report_session_fetch_page = "session.fetch-page"
)

const DefaultBaseURL = "https://fldoralweb.myvscloud.com/webtrac/web"

type SessionConfig struct {
	// BaseURL is the directory that holds splash.html and search.html.
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	// RetryBackoff is how long to wait before the single retry of a failed request.
	RetryBackoff time.Duration
	// BeginTime is the earliest slot start the search asks for, in the site's format.
	BeginTime string
	// Output receives full http messages when set.
	Output telemetry.MessageOutput
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 2,
		RetryBackoff:      2 * time.Second,
		BeginTime:         "08:00 am",
	}
}

// SearchQuery is one logical search: a date and the sports to ask for.
type SearchQuery struct {
	// Date is an ISO calendar date.
	Date   string
	Sports []courts.Sport
}

// Session is one challenge-cleared client with its cookies and anti-forgery token.
// It belongs to a single pagination run and must not be shared between runs.
type Session struct {
	http   *resty.Client
	base   *url.URL
	jar    http.CookieJar
	config SessionConfig
	tel    telemetry.API

	mutex  sync.Mutex
	token  string
	warmed bool
	urls   []string
}

func NewSession(config SessionConfig, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)

	defaults := DefaultSessionConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.RetryBackoff < 0 {
		config.RetryBackoff = 0
	}
	if config.BeginTime == "" {
		config.BeginTime = defaults.BeginTime
	}

	tel = telemetry.NewScopedAPI("webtrac", tel)

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(config.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeaders(map[string]string{
		"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "max-age=0",
		"Upgrade-Insecure-Requests": "1",
	})
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	httpClient.SetTimeout(config.Timeout)

	// network failures get exactly one retry, challenge and block responses are
	// never retried here
	httpClient.SetRetryCount(1)
	httpClient.SetRetryWaitTime(config.RetryBackoff)
	httpClient.SetRetryMaxWaitTime(config.RetryBackoff)
	httpClient.AddRetryCondition(func(_ *resty.Response, err error) bool {
		return err != nil && !errors.Is(err, context.Canceled)
	})

	// max burst >= requests per second just means that no requests will be dropped
	burst := int(config.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, config.Output)

	return &Session{
		http:   httpClient,
		base:   base,
		jar:    jar,
		config: config,
		tel:    tel,
	}, nil
}

func (s *Session) recordURL(res *resty.Response) {
	if res == nil || res.Request == nil {
		return
	}
	target := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		target = res.RawResponse.Request.URL.String()
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.urls = append(s.urls, target)
}

// RequestURLs returns the full urls requested so far, in order.
func (s *Session) RequestURLs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.urls...)
}

func (s *Session) Token() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.token
}

// SetToken replaces the anti-forgery token sent with the next page request, empty
// tokens are ignored so that a page without one does not wipe a valid token.
func (s *Session) SetToken(token string) {
	if token == "" {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.token = token
}

func (s *Session) get(ctx context.Context, op, endpoint string, params url.Values, headers map[string]string) ([]byte, error) {
	req := s.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParamsFromValues(params)
	}
	if headers != nil {
		req.SetHeaders(headers)
	}
	res, err := req.Get(endpoint)
	s.recordURL(res)
	if err != nil {
		return nil, transportError(op, err)
	}
	body := res.Body()
	err = responseError(op, res.StatusCode(), body)
	if err != nil {
		return body, err
	}
	return body, nil
}

func (s *Session) wait(ctx context.Context) error {
	if s.config.RetryBackoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.config.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WarmUp clears the bot challenge by loading the splash page, makes sure the
// cookies the site expects are present and picks up the first anti-forgery token.
// A challenge failure during warm-up is retried once after the configured backoff.
func (s *Session) WarmUp(ctx context.Context) error {
	_, err := s.get(ctx, "warm-up", "/splash.html", nil, nil)
	if IsChallengeFailure(err) {
		s.tel.ReportWarning(report_session_warm_up, err, "retrying once")
		if waitErr := s.wait(ctx); waitErr != nil {
			return waitErr
		}
		_, err = s.get(ctx, "warm-up", "/splash.html", nil, nil)
	}
	if err != nil {
		s.tel.ReportBroken(report_session_warm_up, err)
		return err
	}

	s.ensureCookies()

	body, err := s.get(ctx, "token", "/search.html", nil, nil)
	if err != nil {
		s.tel.ReportBroken(report_session_warm_up, fmt.Errorf("fetch token page: %w", err))
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: token page: %s", ErrParse, err.Error())
	}
	token := doc.Find("input[name=_csrf_token]").AttrOr("value", "")
	if token == "" {
		s.tel.ReportWarning(report_session_warm_up, "anti-forgery token not found")
	}
	s.SetToken(token)

	s.mutex.Lock()
	s.warmed = true
	s.mutex.Unlock()
	return nil
}

func (s *Session) ensureCookies() {
	present := map[string]bool{}
	for _, cookie := range s.jar.Cookies(s.base) {
		present[cookie.Name] = true
	}
	var missing []*http.Cookie
	if !present["_CookiesEnabled"] {
		missing = append(missing, &http.Cookie{Name: "_CookiesEnabled", Value: "Yes", Path: "/"})
	}
	if !present["_mobile"] {
		missing = append(missing, &http.Cookie{Name: "_mobile", Value: "no", Path: "/"})
	}
	if len(missing) > 0 {
		s.jar.SetCookies(s.base, missing)
	}
}

func (s *Session) searchParams(query SearchQuery, page int) (url.Values, error) {
	siteDate, err := courts.SiteDate(query.Date)
	if err != nil {
		return nil, fmt.Errorf("search date: %w", err)
	}
	sports := query.Sports
	if len(sports) == 0 {
		sports = []courts.Sport{courts.SportPickleball, courts.SportTennis}
	}

	params := url.Values{}
	params.Set("Action", "Start")
	params.Set("SubAction", "")
	params.Set("_csrf_token", s.Token())
	params.Set("date", siteDate)
	params.Set("begintime", s.config.BeginTime)
	for _, sport := range sports {
		params.Add("type", sport.SearchType())
	}
	for _, empty := range []string{"subtype", "category", "features", "keyword", "primarycode", "multiselectlist_value"} {
		params.Set(empty, "")
	}
	for i := 1; i <= 8; i++ {
		params.Set("features"+strconv.Itoa(i), "")
	}
	params.Set("keywordoption", "Match One")
	params.Set("blockstodisplay", "24")
	params.Set("frheadcount", "0")
	params.Set("display", "Detail")
	params.Set("search", "yes")
	params.Set("page", strconv.Itoa(page))
	params.Set("module", "fr")
	params.Set("frwebsearch_buttonsearch", "yes")
	return params, nil
}

// FetchPage requests one page (1-based) of search results and returns the raw body.
// The session warms itself up on first use.
func (s *Session) FetchPage(ctx context.Context, query SearchQuery, page int) ([]byte, error) {
	s.mutex.Lock()
	warmed := s.warmed
	s.mutex.Unlock()
	if !warmed {
		err := s.WarmUp(ctx)
		if err != nil {
			return nil, err
		}
	}

	params, err := s.searchParams(query, page)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Referer":        s.base.JoinPath("search.html").String(),
		"Sec-Fetch-Site": "same-origin",
		"Sec-Fetch-Mode": "navigate",
		"Sec-Fetch-Dest": "document",
	}

	op := fmt.Sprintf("page %d", page)
	body, err := s.get(ctx, op, "/search.html", params, headers)
	if err != nil {
		s.tel.ReportWarning(report_session_fetch_page, err, telemetry.KV{Key: "page", Value: page}, query.Date)
		return nil, err
	}
	s.tel.ReportDebug(report_session_fetch_page, telemetry.KV{Key: "page", Value: page}, len(body))
	return body, nil
}
