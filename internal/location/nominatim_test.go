package location_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/location"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/usage"
)

const austinBody = `[
 {"display_name":"Austin, Travis County, Texas, United States","lat":"30.2711","lon":"-97.7437",
  "address":{"city":"Austin","state":"Texas","country":"United States","country_code":"us"}},
 {"display_name":"Austin, Mower County, Minnesota, United States","lat":"43.6666","lon":"-92.9746",
  "address":{"town":"Austin","state":"Minnesota","country":"United States","country_code":"us"}}
]`

func unlimited() location.Option { return location.WithLimiter(rate.NewLimiter(rate.Inf, 1)) }

func TestSuggest_MapsResults(t *testing.T) {
	var gotUA, gotFormat, gotDetails, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		q := r.URL.Query()
		gotFormat, gotDetails, gotLimit = q.Get("format"), q.Get("addressdetails"), q.Get("limit")
		fmt.Fprint(w, austinBody)
	}))
	defer srv.Close()

	ut := usage.NewTracker(10)
	c := location.NewClient(location.WithBaseURL(srv.URL), unlimited(), location.WithUsage(ut))
	got, err := c.Suggest(context.Background(), "Austin", 0)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	if gotUA != location.DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotFormat != "json" || gotDetails != "1" || gotLimit != "5" {
		t.Errorf("params = %q %q %q", gotFormat, gotDetails, gotLimit)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(got))
	}
	if got[0].City != "Austin" || got[0].State != "Texas" || got[0].CountryCode != "US" || got[0].Lat != 30.2711 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].City != "Austin" {
		t.Errorf("town should fill City: %+v", got[1])
	}
	if s := ut.Stats()["nominatim"]; s.Calls != 1 || s.Failures != 0 {
		t.Errorf("usage = %+v", s)
	}
}

func TestSuggest_ShortQuerySkipsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	c := location.NewClient(location.WithBaseURL(srv.URL), unlimited())
	for _, q := range []string{"", " ", "a", " b "} {
		got, err := c.Suggest(context.Background(), q, 5)
		if err != nil || got == nil || len(got) != 0 {
			t.Errorf("Suggest(%q) = %v, %v", q, got, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("upstream called %d times", calls.Load())
	}
}

func TestSuggest_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ut := usage.NewTracker(10)
	c := location.NewClient(location.WithBaseURL(srv.URL), unlimited(), location.WithUsage(ut))
	_, err := c.Suggest(context.Background(), "Denver", 3)

	var he *apierror.HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v", err)
	}
	if s := ut.Stats()["nominatim"]; s.Failures != 1 {
		t.Errorf("usage = %+v", s)
	}
}

func TestSuggest_LimiterHonoursContext(t *testing.T) {
	c := location.NewClient(location.WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)),
		location.WithBaseURL("http://127.0.0.1:0"))
	// drain the single token
	_, _ = c.Suggest(context.Background(), "xx", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Suggest(ctx, "Denver", 1); err == nil {
		t.Error("expected the limiter wait to fail under a short deadline")
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		in   model.LocationSuggestion
		want string
	}{
		{model.LocationSuggestion{City: "Austin", State: "Texas", Country: "United States", CountryCode: "US"}, "Austin, Texas"},
		{model.LocationSuggestion{City: "Paris", State: "Île-de-France", Country: "France", CountryCode: "FR"}, "Paris, France"},
		{model.LocationSuggestion{DisplayName: "Somewhere"}, "Somewhere"},
	}
	for _, tc := range cases {
		if got := location.Label(tc.in); got != tc.want {
			t.Errorf("Label(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
