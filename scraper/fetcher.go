package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
)

const responseKey = "response"

// FetchResult is one successful page download.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
	Attempts   int
	// Truncated is set when the body reached MaxBodySize.
	Truncated bool
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
	Timeout        time.Duration
	MaxAttempts    int
	// MaxBodySize caps the body in bytes; 0 means unlimited.
	MaxBodySize int
	// Pacer runs before every attempt, retries included.
	Pacer     Pacer
	Transport http.RoundTripper
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Fetcher downloads pages through a synchronous colly collector with a fixed
// attempt budget. It is meant to be driven by one goroutine at a time.
type Fetcher struct {
	collector   *colly.Collector
	userAgent   string
	language    string
	referer     string
	maxAttempts int
	maxBody     int
	pacer       Pacer
	metrics     *Metrics
	logger      *slog.Logger

	requestCount int64
	retryCount   int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
}

// NewFetcher builds a Fetcher. A zero MaxAttempts means a single attempt and
// a nil Pacer means no delay.
func NewFetcher(opts FetcherOptions) *Fetcher {
	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(opts.MaxBodySize),
	)
	if opts.Timeout > 0 {
		collector.SetRequestTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		collector.WithTransport(opts.Transport)
	} else {
		collector.WithTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		})
	}
	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	f := &Fetcher{
		collector:    collector,
		userAgent:    opts.UserAgent,
		language:     opts.AcceptLanguage,
		referer:      opts.Referer,
		maxAttempts:  opts.MaxAttempts,
		maxBody:      opts.MaxBodySize,
		pacer:        opts.Pacer,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		errorsByType: make(map[string]int),
	}
	if f.maxAttempts <= 0 {
		f.maxAttempts = 1
	}
	if f.pacer == nil {
		f.pacer = NoDelay{}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.logger = f.logger.With(slog.String("component", "fetcher"))
	return f
}

// NewSession replaces the cookie jar so the following requests start a fresh
// browsing session.
func (f *Fetcher) NewSession() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	f.collector.SetCookieJar(jar)
	return nil
}

// Fetch downloads rawURL, retrying transport failures and non-200 responses
// until the attempt budget is spent. Only a cancelled context or an exhausted
// budget produce an error; the latter is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	var last error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			atomic.AddInt64(&f.retryCount, 1)
			f.metrics.IncRetries()
		}
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}

		result, err := f.attempt(rawURL)
		if err == nil {
			result.Attempts = attempt
			return result, nil
		}
		last = err

		label := errorTypeLabel(err)
		atomic.AddInt64(&f.errorCount, 1)
		f.metrics.IncError(label)
		f.mu.Lock()
		f.errorsByType[label]++
		f.mu.Unlock()

		f.logger.Warn("fetch attempt failed",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.maxAttempts),
			slog.String("error_type", label),
			slog.Any("error", err),
		)
	}

	f.mu.Lock()
	f.failedURLs = append(f.failedURLs, rawURL)
	f.mu.Unlock()
	f.logger.Error("giving up on url",
		slog.String("url", rawURL),
		slog.Int("attempts", f.maxAttempts),
		slog.Any("error", last),
	)
	return nil, &FetchError{URL: rawURL, Attempts: f.maxAttempts, Cause: last}
}

func (f *Fetcher) attempt(rawURL string) (*FetchResult, error) {
	cctx := colly.NewContext()
	start := time.Now()
	err := f.collector.Request(http.MethodGet, rawURL, nil, cctx, f.header())
	elapsed := time.Since(start)

	atomic.AddInt64(&f.requestCount, 1)
	f.metrics.ObserveDuration(elapsed)

	resp, _ := cctx.GetAny(responseKey).(*colly.Response)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if classified := classifyError(err, status); classified != nil {
		f.metrics.IncRequest("failed")
		return nil, classified
	}
	if resp == nil {
		f.metrics.IncRequest("failed")
		return nil, fmt.Errorf("no response recorded for %s", rawURL)
	}

	f.metrics.IncRequest("ok")
	truncated := f.maxBody > 0 && len(resp.Body) >= f.maxBody
	if truncated {
		f.logger.Warn("page body reached size limit and was cut short",
			slog.String("url", rawURL),
			slog.Int("max_body_size", f.maxBody),
		)
	}
	return &FetchResult{
		URL:        rawURL,
		StatusCode: status,
		Body:       resp.Body,
		Elapsed:    elapsed,
		Truncated:  truncated,
	}, nil
}

// header is rebuilt per attempt because colly writes defaults into it.
func (f *Fetcher) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", f.userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.language != "" {
		h.Set("Accept-Language", f.language)
	}
	if f.referer != "" {
		h.Set("Referer", f.referer)
	}
	return h
}

func (f *Fetcher) snapshotFailedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.failedURLs))
	copy(out, f.failedURLs)
	return out
}

func (f *Fetcher) snapshotErrors() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		out[k] = v
	}
	return out
}
