package provider

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

// quotaHeaderSet names the limit/remaining/reset headers of one convention.
type quotaHeaderSet struct {
	limit, remaining, reset string
}

// Checked in order; the first set with a recognisable header wins.
// RapidAPI's per-plan request counters come before the generic ones.
var quotaHeaderSets = []quotaHeaderSet{
	{"X-RateLimit-Requests-Limit", "X-RateLimit-Requests-Remaining", "X-RateLimit-Requests-Reset"},
	{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	{"X-Quota-Limit", "X-Quota-Remaining", "X-Quota-Reset"},
	{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
}

// ParseQuotaHeaders extracts provider quota information. Fields the headers
// do not carry are -1. It returns nil when no known header is present.
func ParseQuotaHeaders(h http.Header, now time.Time) *model.QuotaInfo {
	for _, set := range quotaHeaderSets {
		limit, okL := headerInt(h, set.limit)
		remaining, okR := headerInt(h, set.remaining)
		if !okL && !okR {
			continue
		}
		info := &model.QuotaInfo{Limit: limit, Remaining: remaining, Used: -1}
		if okL && okR {
			info.Used = max(0, limit-remaining)
		}
		info.ResetAt = parseReset(h.Get(set.reset), now)
		return info
	}
	return nil
}

func headerInt(h http.Header, name string) (int, bool) {
	v := strings.TrimSpace(h.Get(name))
	if v == "" {
		return -1, false
	}
	// "100;w=3600" style values carry a policy suffix
	if i := strings.IndexAny(v, ";,"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1, false
	}
	return n, true
}

// parseReset accepts delta seconds, a unix timestamp, or an HTTP date.
func parseReset(v string, now time.Time) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > 1_000_000_000 {
			return time.Unix(n, 0).UTC()
		}
		return now.Add(time.Duration(n) * time.Second).UTC()
	}
	if t, err := http.ParseTime(v); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
