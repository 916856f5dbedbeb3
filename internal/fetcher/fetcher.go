package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"
)

// ErrBlocked is returned when the retailer served a bot challenge
// instead of the product page.
var ErrBlocked = errors.New("blocked by anti-bot protection")

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

var challengeTokens = []string{
	"captcha",
	"robot check",
	"verify you are a human",
	"are you a robot",
	"access denied",
}

type Config struct {
	Timeout     time.Duration
	Delay       time.Duration
	RandomDelay time.Duration
	UserAgents  []string
	Proxies     []string
	CacheTTL    time.Duration
}

type cachedPage struct {
	doc       *goquery.Document
	fetchedAt time.Time
}

// Fetcher downloads retailer pages with per-domain pacing, user agent
// rotation and a short-lived page cache.
type Fetcher struct {
	base   *colly.Collector
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedPage
	next  int
}

func New(cfg Config, logger *slog.Logger) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Delay == 0 {
		cfg.Delay = 2 * time.Second
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}

	base := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	base.SetRequestTimeout(cfg.Timeout)

	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("failed to set limit rule: %w", err)
	}

	if len(cfg.Proxies) > 0 {
		switcher, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("failed to configure proxies: %w", err)
		}
		base.SetProxyFunc(switcher)
	}

	return &Fetcher{
		base:   base,
		cfg:    cfg,
		logger: logger.With("component", "fetcher"),
		cache:  make(map[string]cachedPage),
	}, nil
}

// Fetch downloads one page and returns its parsed document.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if doc, ok := f.cached(pageURL); ok {
		f.logger.Debug("cache hit", "url", pageURL)
		return doc, nil
	}

	c := f.base.Clone()

	var (
		body       []byte
		statusCode int
		fetchErr   error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", f.nextUserAgent())
		r.Headers.Set("Accept-Language", "en-GB,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		statusCode = r.StatusCode
		fetchErr = err
	})

	f.logger.Debug("fetching page", "url", pageURL)

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = err
	}

	if fetchErr != nil {
		if statusCode == 403 || statusCode == 503 {
			return nil, fmt.Errorf("%w: status %d for %s", ErrBlocked, statusCode, pageURL)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, fetchErr)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	if isChallenge(doc) {
		return nil, fmt.Errorf("%w: challenge page for %s", ErrBlocked, pageURL)
	}

	f.store(pageURL, doc)
	return doc, nil
}

func (f *Fetcher) cached(pageURL string) (*goquery.Document, bool) {
	if f.cfg.CacheTTL == 0 {
		return nil, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.cache[pageURL]
	if !ok || time.Since(entry.fetchedAt) > f.cfg.CacheTTL {
		delete(f.cache, pageURL)
		return nil, false
	}
	return entry.doc, true
}

func (f *Fetcher) store(pageURL string, doc *goquery.Document) {
	if f.cfg.CacheTTL == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[pageURL] = cachedPage{doc: doc, fetchedAt: time.Now()}
}

func (f *Fetcher) nextUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ua := f.cfg.UserAgents[f.next%len(f.cfg.UserAgents)]
	f.next++
	return ua
}

// isChallenge spots interstitial bot checks that come back with a 200.
func isChallenge(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").Text())
	for _, token := range challengeTokens {
		if strings.Contains(title, token) {
			return true
		}
	}

	text := strings.ToLower(doc.Find("body").Text())
	if len(text) > 4096 {
		text = text[:4096]
	}
	for _, token := range challengeTokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}
