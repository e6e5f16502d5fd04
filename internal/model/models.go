// Package model defines shared data structures for the search service.
package model

import (
	"strings"
	"time"
)

// Job is a normalised listing returned by any provider. Field names follow
// the JSearch shape so the front end consumes one format.
type Job struct {
	JobID        string `json:"job_id"`
	JobPublisher string `json:"job_publisher"`

	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`

	EmployerName    string `json:"employer_name"`
	EmployerWebsite string `json:"employer_website,omitempty"`
	EmployerLogo    string `json:"employer_logo,omitempty"`

	JobCity      string   `json:"job_city"`
	JobState     string   `json:"job_state"`
	JobCountry   string   `json:"job_country"`
	JobIsRemote  bool     `json:"job_is_remote"`
	JobLatitude  *float64 `json:"job_latitude,omitempty"`
	JobLongitude *float64 `json:"job_longitude,omitempty"`

	JobEmploymentType string   `json:"job_employment_type"`
	JobMinSalary      *float64 `json:"job_min_salary,omitempty"`
	JobMaxSalary      *float64 `json:"job_max_salary,omitempty"`
	JobSalaryCurrency string   `json:"job_salary_currency"`
	JobSalaryPeriod   string   `json:"job_salary_period"`

	JobPostedAtTimestamp   int64  `json:"job_posted_at_timestamp,omitempty"`
	JobPostedAtDatetimeUTC string `json:"job_posted_at_datetime_utc,omitempty"`
	JobOfferExpirationUTC  string `json:"job_offer_expiration_datetime_utc,omitempty"`
	JobApplyLink           string `json:"job_apply_link"`

	JobRequiredSkills []string       `json:"job_required_skills,omitempty"`
	JobBenefits       []string       `json:"job_benefits,omitempty"`
	JobHighlights     *JobHighlights `json:"job_highlights,omitempty"`
}

// JobHighlights groups the bullet lists some providers attach to a listing.
type JobHighlights struct {
	Qualifications   []string `json:"Qualifications,omitempty"`
	Responsibilities []string `json:"Responsibilities,omitempty"`
	Benefits         []string `json:"Benefits,omitempty"`
}

// Key returns the publisher-qualified identity of the job. job_id alone is
// not unique across providers.
func (j Job) Key() string {
	return strings.ToLower(j.JobPublisher) + ":" + j.JobID
}

// Default search parameter values.
const (
	DefaultRadius   = 25
	DefaultPage     = 1
	DefaultNumPages = 1
)

// JobSearchParams describes one search invocation.
type JobSearchParams struct {
	Query      string   `json:"query"`
	Location   string   `json:"location"`
	Radius     int      `json:"radius"` // miles
	Page       int      `json:"page"`
	NumPages   int      `json:"num_pages"`
	RemoteOnly bool     `json:"remote_only"`
	Exclude    []string `json:"exclude,omitempty"` // red-flag terms; any match drops the job
}

// Normalize returns a copy with whitespace trimmed and defaults applied.
func (p JobSearchParams) Normalize() JobSearchParams {
	out := p
	out.Query = strings.TrimSpace(p.Query)
	out.Location = strings.TrimSpace(p.Location)
	if out.Radius <= 0 {
		out.Radius = DefaultRadius
	}
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	if out.NumPages < 1 {
		out.NumPages = DefaultNumPages
	}
	if len(p.Exclude) > 0 {
		out.Exclude = make([]string, 0, len(p.Exclude))
		for _, e := range p.Exclude {
			if e = strings.TrimSpace(e); e != "" {
				out.Exclude = append(out.Exclude, e)
			}
		}
	}
	return out
}

// Status values reported in JobSearchResponse.Status.
const (
	StatusSuccess = "success"
	StatusMock    = "mock"
	StatusError   = "error"
)

// JobSearchResponse is the payload returned to search callers.
type JobSearchResponse struct {
	Status           string    `json:"status"`
	Data             []Job     `json:"data"`
	OriginalData     []Job     `json:"original_data"`
	TotalCount       int       `json:"total_count"`
	NumPages         int       `json:"num_pages"`
	Page             int       `json:"page"`
	HasMore          bool      `json:"has_more"`
	LocationFiltered bool      `json:"location_filtered"`
	Message          string    `json:"message,omitempty"`
	Cached           bool      `json:"cached"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// QuotaInfo is the provider-reported quota parsed from response headers.
type QuotaInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	ResetAt   time.Time `json:"reset_at,omitempty"`
}

// ProviderResult is what a single provider client returns.
type ProviderResult struct {
	Status           string     `json:"status"`
	Data             []Job      `json:"data"`
	OriginalData     []Job      `json:"original_data"`
	TotalCount       int        `json:"total_count"`
	NumPages         int        `json:"num_pages"`
	LocationFiltered bool       `json:"location_filtered"`
	Quota            *QuotaInfo `json:"quota,omitempty"`
}

// LocationSuggestion is a geocoded place offered for the location box.
type LocationSuggestion struct {
	DisplayName string  `json:"display_name"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}
