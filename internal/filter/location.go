package filter

import (
	"strings"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

var usStates = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas",
	"CA": "california", "CO": "colorado", "CT": "connecticut", "DE": "delaware",
	"DC": "district of columbia", "FL": "florida", "GA": "georgia", "HI": "hawaii",
	"ID": "idaho", "IL": "illinois", "IN": "indiana", "IA": "iowa",
	"KS": "kansas", "KY": "kentucky", "LA": "louisiana", "ME": "maine",
	"MD": "maryland", "MA": "massachusetts", "MI": "michigan", "MN": "minnesota",
	"MS": "mississippi", "MO": "missouri", "MT": "montana", "NE": "nebraska",
	"NV": "nevada", "NH": "new hampshire", "NJ": "new jersey", "NM": "new mexico",
	"NY": "new york", "NC": "north carolina", "ND": "north dakota", "OH": "ohio",
	"OK": "oklahoma", "OR": "oregon", "PA": "pennsylvania", "RI": "rhode island",
	"SC": "south carolina", "SD": "south dakota", "TN": "tennessee", "TX": "texas",
	"UT": "utah", "VT": "vermont", "VA": "virginia", "WA": "washington",
	"WV": "west virginia", "WI": "wisconsin", "WY": "wyoming",
}

var usAliases = map[string]bool{
	"us": true, "usa": true, "u.s.": true, "u.s.a.": true,
	"united states": true, "united states of america": true,
}

// stateCode returns the two-letter code for a state name or code, or "".
func stateCode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if _, ok := usStates[strings.ToUpper(s)]; ok {
		return strings.ToUpper(s)
	}
	for code, name := range usStates {
		if name == s {
			return code
		}
	}
	return ""
}

// countries maps lower-case country names to ISO 3166-1 alpha-2 codes for
// the markets the providers cover.
var countries = map[string]string{
	"canada": "CA", "united kingdom": "GB", "uk": "GB", "great britain": "GB",
	"england": "GB", "ireland": "IE", "germany": "DE", "france": "FR",
	"netherlands": "NL", "belgium": "BE", "austria": "AT", "switzerland": "CH",
	"spain": "ES", "italy": "IT", "poland": "PL", "sweden": "SE",
	"australia": "AU", "new zealand": "NZ", "india": "IN", "singapore": "SG",
	"japan": "JP", "brazil": "BR", "mexico": "MX", "south africa": "ZA",
}

var countryCodes = func() map[string]bool {
	m := map[string]bool{"US": true}
	for _, code := range countries {
		m[code] = true
	}
	return m
}()

// countryCode normalizes a country name, alias or code. Unknown input is
// upper-cased.
func countryCode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if usAliases[s] {
		return "US"
	}
	if code, ok := countries[s]; ok {
		return code
	}
	return strings.ToUpper(s)
}

// knownCountry returns the code for a recognised country name or code, or "".
func knownCountry(s string) string {
	if code := countryCode(s); countryCodes[code] {
		return code
	}
	return ""
}

// locationQuery is a parsed "City, ST" / "State" / "Country" / "Remote" string.
type locationQuery struct {
	remote  bool
	single  bool // one part; any of city, state or country may match
	city    string
	state   string // two-letter code
	country string
}

func (q locationQuery) empty() bool {
	return !q.remote && q.city == "" && q.state == "" && q.country == ""
}

func parseLocation(location string) locationQuery {
	var q locationQuery
	parts := strings.Split(location, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) == 1 {
		p := parts[0]
		q.single = true
		switch {
		case strings.EqualFold(p, "remote"):
			q.remote = true
		case len(p) == 2:
			// "CA" and "DE" are both a state and a country
			q.state = stateCode(p)
			q.country = knownCountry(p)
		case knownCountry(p) != "":
			q.country = knownCountry(p)
		case stateCode(p) != "":
			// "New York" is both; keep the city too
			q.state = stateCode(p)
			q.city = strings.ToLower(p)
		default:
			q.city = strings.ToLower(p)
		}
		return q
	}

	q.city = strings.ToLower(parts[0])
	for _, p := range parts[1:] {
		if code := stateCode(p); code != "" && q.state == "" {
			q.state = code
			continue
		}
		if code := knownCountry(p); code != "" && q.country == "" {
			q.country = code
		}
	}
	return q
}

// MatchesLocation reports whether job fits the requested location. Remote
// jobs match any location. A city match or, when a state was given, a state
// match is enough, since radius searches legitimately return nearby cities.
func MatchesLocation(job model.Job, location string) bool {
	location = strings.TrimSpace(location)
	if location == "" || job.JobIsRemote {
		return true
	}
	q := parseLocation(location)
	if q.empty() {
		return true
	}
	if q.remote {
		return false
	}

	jobCity := strings.ToLower(strings.TrimSpace(job.JobCity))
	jobState := stateCode(job.JobState)
	jobCountry := countryCode(job.JobCountry)

	if q.city != "" && jobCity != "" && jobCity == q.city {
		return true
	}
	if q.state != "" && jobState == q.state {
		return true
	}
	if q.country != "" && (q.single || q.city == "" && q.state == "") {
		return jobCountry == q.country
	}
	return false
}

// ByLocation re-applies the requested location to provider results whose
// own location filter is unreliable. applied is false when location is
// empty or unrecognisable, in which case jobs is returned unchanged.
func ByLocation(jobs []model.Job, location string) (filtered []model.Job, applied bool) {
	if strings.TrimSpace(location) == "" || parseLocation(location).empty() {
		return jobs, false
	}
	filtered = make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if MatchesLocation(j, location) {
			filtered = append(filtered, j)
		}
	}
	return filtered, true
}
