package httpcache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var watermark = time.Date(2024, 3, 10, 12, 0, 0, 500_000_000, time.UTC)

func TestIsFreshWithoutWatermark(t *testing.T) {
	validators := []Validators{
		{},
		{IfModifiedSince: watermark.Format(http.TimeFormat)},
		{IfNoneMatch: `"abc"`},
		{IfModifiedSince: time.Now().Add(time.Hour).UTC().Format(http.TimeFormat), IfNoneMatch: "*"},
	}

	for _, v := range validators {
		if IsFresh(nil, v) {
			t.Errorf("Expected nil watermark never to be fresh, got fresh for %+v", v)
		}
	}
}

func TestIsFresh(t *testing.T) {
	tests := []struct {
		name     string
		v        Validators
		expected bool
	}{
		{"no validators", Validators{}, false},
		{"echoed last modified", Validators{IfModifiedSince: watermark.Format(http.TimeFormat)}, true},
		{"later date", Validators{IfModifiedSince: watermark.Add(time.Hour).Format(http.TimeFormat)}, true},
		{"earlier date", Validators{IfModifiedSince: watermark.Add(-time.Second).Format(http.TimeFormat)}, false},
		{"garbage date", Validators{IfModifiedSince: "yesterday-ish"}, false},
		{"etag only", Validators{IfNoneMatch: `"abc"`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFresh(&watermark, tt.v); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestComputeWithoutWatermark(t *testing.T) {
	now := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	h := Compute(nil, now)

	if h.MaxAge != 0 {
		t.Errorf("Expected max-age 0, got %d", h.MaxAge)
	}
	if !h.Expires.Equal(now) {
		t.Errorf("Expected expires %v, got %v", now, h.Expires)
	}
	if !h.Public {
		t.Error("Expected public caching")
	}
}

func TestComputeMaxAge(t *testing.T) {
	tests := []struct {
		elapsed  time.Duration
		expected int
	}{
		{0, 600},
		{90 * time.Second, 510},
		{599 * time.Second, 1},
		{600 * time.Second, 0},
		{time.Hour, 0},
	}

	for _, tt := range tests {
		now := watermark.Add(tt.elapsed)
		h := Compute(&watermark, now)
		if h.MaxAge != tt.expected {
			t.Errorf("elapsed %v: expected max-age %d, got %d", tt.elapsed, tt.expected, h.MaxAge)
		}
		if !h.Expires.Equal(now.Add(time.Duration(tt.expected) * time.Second)) {
			t.Errorf("elapsed %v: unexpected expires %v", tt.elapsed, h.Expires)
		}
	}
}

func TestComputeMaxAgeNonIncreasing(t *testing.T) {
	previous := Compute(&watermark, watermark).MaxAge
	for step := 0; step <= 700; step += 7 {
		current := Compute(&watermark, watermark.Add(time.Duration(step)*time.Second)).MaxAge
		if current > previous {
			t.Fatalf("max-age increased from %d to %d at +%ds", previous, current, step)
		}
		if current < 0 {
			t.Fatalf("max-age went negative at +%ds", step)
		}
		previous = current
	}
}

func TestForAsset(t *testing.T) {
	now := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	h := ForAsset(now)

	if h.MaxAge != 864000 {
		t.Errorf("Expected max-age 864000, got %d", h.MaxAge)
	}
	if !h.Expires.Equal(now.Add(240 * time.Hour)) {
		t.Errorf("Unexpected expires %v", h.Expires)
	}
}

func TestApply(t *testing.T) {
	lastUpdated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC)
	header := http.Header{}

	Compute(&lastUpdated, now).Apply(header)

	if got := header.Get("Cache-Control"); got != "public, max-age=300" {
		t.Errorf("Expected Cache-Control 'public, max-age=300', got '%s'", got)
	}
	if got := header.Get("Expires"); got != "Sun, 10 Mar 2024 12:10:00 GMT" {
		t.Errorf("Unexpected Expires '%s'", got)
	}
}

func TestSetLastModified(t *testing.T) {
	header := http.Header{}
	SetLastModified(header, nil)
	if header.Get("Last-Modified") != "" {
		t.Error("Expected no Last-Modified without watermark")
	}

	SetLastModified(header, &watermark)
	if got := header.Get("Last-Modified"); got != "Sun, 10 Mar 2024 12:00:00 GMT" {
		t.Errorf("Unexpected Last-Modified '%s'", got)
	}

	// The value we emit must make the next conditional request fresh.
	if !IsFresh(&watermark, Validators{IfModifiedSince: header.Get("Last-Modified")}) {
		t.Error("Expected echoed Last-Modified to be fresh")
	}
}

func TestValidatorsFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if HasValidators(ValidatorsFrom(r)) {
		t.Error("Expected no validators on a plain request")
	}

	r.Header.Set("If-None-Match", `"x"`)
	if !HasValidators(ValidatorsFrom(r)) {
		t.Error("Expected If-None-Match to count as a validator")
	}
}
