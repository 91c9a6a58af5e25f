// client.go contains the HTTP side of scraping boatrace.jp: timeouts, encoding detection and
// status handling shared by every page the scraper reads.

package boatrace

import (
	"boatrace-results/internal/components/assert"
	"boatrace-results/internal/components/telemetry"
	"bytes"
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://www.boatrace.jp"

// DefaultUserAgent is sent unless Options.UserAgent overrides it.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	ConnectTimeout = 5 * time.Second
	ReadTimeout    = 30 * time.Second
)

const (
	pathRaceList   = "/owpc/pc/race/index"
	pathRaceIndex  = "/owpc/pc/race/raceindex"
	pathRaceResult = "/owpc/pc/race/raceresult"
)

// StatusError is returned when the site answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// BrowserTransport wraps the transport with cloudflare-bp-go, which mimics a browser's TLS
	// handshake and fills in the browser headers a request is missing.
	BrowserTransport bool
	// RequestsPerSecond caps the request rate of the client, 0 means no cap.
	RequestsPerSecond float64
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("boatrace_scraper", tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	_, err := url.Parse(baseUrl)
	if err != nil {
		return Client{}, fmt.Errorf("parse base url: %w", err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	httpClient.SetTransport(newTransport(ConnectTimeout, ReadTimeout))
	if opts.BrowserTransport {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	// bounds the body read on top of the per-phase transport timeouts
	httpClient.SetTimeout(ConnectTimeout + ReadTimeout)
	httpClient.SetHeader("user-agent", userAgent)

	if opts.RequestsPerSecond > 0 {
		burst := int(math.Max(1, math.Ceil(opts.RequestsPerSecond)))
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, "boatrace.scraper", tel)

	return Client{
		http: httpClient,
		tel:  tel,
	}, nil
}

// newTransport bounds dialing and the TLS handshake by `connect`, and waiting for the response
// headers once the request is written by `read`.
func newTransport(connect, read time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}

// document fetches a page and parses it, decoding from whatever charset the
// response headers or the document itself declare.
func (c Client) document(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if !res.IsSuccess() {
		requestUrl := res.Request.URL
		if res.Request.RawRequest != nil {
			requestUrl = res.Request.RawRequest.URL.String()
		}
		return nil, &StatusError{URL: requestUrl, StatusCode: res.StatusCode()}
	}

	reader, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return doc, nil
}
