// Package logo derives candidate employer logo URLs and checks them before
// they are shown. An unvalidated or failed candidate must be hidden.
package logo

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	clearbitBase    = "https://logo.clearbit.com/"
	ValidateTimeout = time.Second
)

var (
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
	legalSuffix  = regexp.MustCompile(`\b(incorporated|inc|llc|ltd|limited|corp|corporation|co|company|gmbh|plc|sa|ag|group|holdings)\b\.?`)
	placeholders = map[string]bool{"confidential": true, "n/a": true, "unknown": true, "private": true}
)

// URL returns a candidate logo URL for an employer, preferring the
// website's domain over a slug of the company name. It returns "" when
// neither yields a usable domain.
func URL(company, website string) string {
	if d := domainOf(website); d != "" {
		return clearbitBase + d
	}
	if slug := slugify(company); slug != "" {
		return clearbitBase + slug + ".com"
	}
	return ""
}

func domainOf(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}

func slugify(company string) string {
	c := strings.ToLower(strings.TrimSpace(company))
	if c == "" || placeholders[c] {
		return ""
	}
	c = strings.ReplaceAll(c, "&", " and ")
	c = legalSuffix.ReplaceAllString(c, " ")
	return nonAlnum.ReplaceAllString(c, "")
}

// Validate reports whether logoURL answers a HEAD request with a 2xx image
// response within ValidateTimeout. Any error or timeout means false.
func Validate(ctx context.Context, client *http.Client, logoURL string) bool {
	if logoURL == "" {
		return false
	}
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, ValidateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, logoURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	return strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "image/")
}

// Resolve returns the candidate URL for an employer if it validates, else "".
func Resolve(ctx context.Context, client *http.Client, company, website string) string {
	u := URL(company, website)
	if Validate(ctx, client, u) {
		return u
	}
	return ""
}
