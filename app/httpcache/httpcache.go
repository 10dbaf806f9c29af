// Package httpcache decides when a digest response may be answered with
// 304 Not Modified and computes the caching headers of fresh responses.
package httpcache

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// RefreshInterval is how often sources are expected to be refreshed.
	RefreshInterval = 600 * time.Second

	// AssetMaxAge is the cache horizon of immutable assets such as images.
	AssetMaxAge = 10 * 24 * time.Hour
)

// Validators are the conditional request headers of an incoming request.
type Validators struct {
	IfModifiedSince string
	IfNoneMatch     string
}

// ValidatorsFrom extracts the conditional headers from r.
func ValidatorsFrom(r *http.Request) Validators {
	return Validators{
		IfModifiedSince: r.Header.Get("If-Modified-Since"),
		IfNoneMatch:     r.Header.Get("If-None-Match"),
	}
}

// HasValidators reports whether any conditional header is present at all.
func HasValidators(v Validators) bool {
	return v.IfModifiedSince != "" || v.IfNoneMatch != ""
}

// IsFresh reports whether the client copy is still current for the given
// watermark. Without a watermark nothing is ever fresh.
func IsFresh(lastUpdated *time.Time, v Validators) bool {
	if lastUpdated == nil || v.IfModifiedSince == "" {
		return false
	}

	since, err := http.ParseTime(v.IfModifiedSince)
	if err != nil {
		return false
	}

	// HTTP dates carry whole seconds only.
	return !lastUpdated.Truncate(time.Second).After(since)
}

// Headers describe the caching policy of a response.
type Headers struct {
	MaxAge  int
	Expires time.Time
	Public  bool
}

// Compute ties the client cache lifetime to the next scheduled refresh after
// lastUpdated. max-age shrinks as now approaches that refresh and never goes
// below zero.
func Compute(lastUpdated *time.Time, now time.Time) Headers {
	maxAge := 0
	if lastUpdated != nil {
		elapsed := int(now.Sub(*lastUpdated) / time.Second)
		maxAge = max(0, int(RefreshInterval/time.Second)-elapsed)
	}

	return Headers{
		MaxAge:  maxAge,
		Expires: now.Add(time.Duration(maxAge) * time.Second),
		Public:  true,
	}
}

// ForAsset returns the long lived policy used for immutable assets.
func ForAsset(now time.Time) Headers {
	return Headers{
		MaxAge:  int(AssetMaxAge / time.Second),
		Expires: now.Add(AssetMaxAge),
		Public:  true,
	}
}

// CacheControl renders the Cache-Control header value.
func (h Headers) CacheControl() string {
	if h.Public {
		return fmt.Sprintf("public, max-age=%d", h.MaxAge)
	}
	return fmt.Sprintf("max-age=%d", h.MaxAge)
}

// Apply writes Cache-Control and Expires to header.
func (h Headers) Apply(header http.Header) {
	header.Set("Cache-Control", h.CacheControl())
	header.Set("Expires", h.Expires.UTC().Format(http.TimeFormat))
}

// SetLastModified writes the Last-Modified header when a watermark exists.
func SetLastModified(header http.Header, lastUpdated *time.Time) {
	if lastUpdated == nil {
		return
	}
	header.Set("Last-Modified", lastUpdated.UTC().Format(http.TimeFormat))
}
