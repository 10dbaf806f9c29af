package feed

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Fetcher performs outbound GET requests for listing pages, linked
// articles and lead images.
type Fetcher struct {
	client *resty.Client
}

type Response struct {
	Body        []byte
	ContentType string
	URL         string
}

func NewFetcher(userAgent string) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetHeader("User-Agent", userAgent).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err == nil && r.StatusCode() >= http.StatusInternalServerError
			}),
	}
}

// Get fetches url within timeout. Non-2xx responses are errors.
func (f *Fetcher) Get(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	finalURL := url
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	return &Response{
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
		URL:         finalURL,
	}, nil
}

// Text returns the body decoded to UTF-8 using the declared charset.
// Unknown or missing charsets leave the body untouched.
func (r *Response) Text() string {
	_, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return string(r.Body)
	}

	name := strings.ToLower(strings.TrimSpace(params["charset"]))
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(r.Body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(r.Body)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), r.Body)
	if err != nil {
		return string(r.Body)
	}
	return string(decoded)
}
