package whttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lineupwatch/lineupwatch/internal/utils"
	"golang.org/x/net/html"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultRetryMax = 2
	DefaultUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    string
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Code, e.URL)
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	Timeout  time.Duration
	RetryMax int
	Proxy    string
}

// Client wraps a retryable HTTP client. Every attempt is bounded by Timeout.
type Client struct {
	rc *retryablehttp.Client
}

func NewClient(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retryMax := opts.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = leveledLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.Proxy != "" {
		u, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		if tr, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
			tr.Proxy = http.ProxyURL(u)
		}
	}

	return &Client{rc: rc}, nil
}

// MustNewClient is NewClient without a proxy, which cannot fail.
func MustNewClient(timeout time.Duration) *Client {
	c, err := NewClient(Options{Timeout: timeout, RetryMax: DefaultRetryMax})
	if err != nil {
		panic(err)
	}
	return c
}

// SendHTTPRequest performs wReq. A non-2xx answer returns both the response and
// a *StatusError.
func (c *Client) SendHTTPRequest(ctx context.Context, wReq *WHTTPReq) (*WHTTPRes, error) {
	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}

	var body interface{}
	if wReq.Body != "" {
		body = strings.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", DefaultUA)
	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	// PassthroughErrorHandler hands back the last response alongside the
	// give-up error once retries run out.
	resp, err := c.rc.Do(req)
	if err != nil && resp == nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)

	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		if title, ok := getHTMLTitle(wRes.BodyString); ok {
			wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
		}
	}

	utils.Log.Debugf("[http] %s %s -> %d (%d chars) %q", method, wReq.URL, wRes.StatusCode, wRes.ResponseLength, wRes.HTTPTitle)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wRes, &StatusError{Code: resp.StatusCode, URL: wReq.URL}
	}
	if err != nil {
		return wRes, err
	}
	return wRes, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		utils.Log.Debugf("[http] failed to parse HTML for title: %v", err)
		return "", false
	}

	return traverse(doc)
}

// leveledLogger routes retryablehttp's messages to the shared logrus logger.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { utils.Log.Errorf("[http] %s %v", msg, kv) }
func (leveledLogger) Info(msg string, kv ...interface{})  { utils.Log.Debugf("[http] %s %v", msg, kv) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { utils.Log.Debugf("[http] %s %v", msg, kv) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { utils.Log.Warnf("[http] %s %v", msg, kv) }
