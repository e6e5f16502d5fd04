package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/filter"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

const (
	JSearchID          = "jsearch"
	DefaultJSearchHost = "jsearch.p.rapidapi.com"
	jsearchPageSize    = 10
)

// JSearchClient searches JSearch through RapidAPI.
type JSearchClient struct {
	APIKey string
	Host   string
	base
}

// NewJSearchClient constructs a client. An empty host means the public
// RapidAPI host.
func NewJSearchClient(apiKey, host string, opts ...Option) *JSearchClient {
	if host == "" {
		host = DefaultJSearchHost
	}
	return &JSearchClient{
		APIKey: apiKey,
		Host:   host,
		base:   newBase("https://"+host, opts),
	}
}

// Configured reports whether an API key is present.
func (c *JSearchClient) Configured() bool {
	return c != nil && c.APIKey != ""
}

type jsearchResponse struct {
	Status string       `json:"status"`
	Data   []JSearchJob `json:"data"`
}

// JSearchJob mirrors one JSearch listing. Any field may be null upstream.
type JSearchJob struct {
	JobID             string   `json:"job_id"`
	JobPublisher      string   `json:"job_publisher"`
	JobTitle          string   `json:"job_title"`
	JobDescription    string   `json:"job_description"`
	EmployerName      string   `json:"employer_name"`
	EmployerWebsite   string   `json:"employer_website"`
	EmployerLogo      string   `json:"employer_logo"`
	JobCity           string   `json:"job_city"`
	JobState          string   `json:"job_state"`
	JobCountry        string   `json:"job_country"`
	JobIsRemote       *bool    `json:"job_is_remote"`
	JobLatitude       *float64 `json:"job_latitude"`
	JobLongitude      *float64 `json:"job_longitude"`
	JobEmploymentType string   `json:"job_employment_type"`
	JobMinSalary      *float64 `json:"job_min_salary"`
	JobMaxSalary      *float64 `json:"job_max_salary"`
	JobSalaryCurrency string   `json:"job_salary_currency"`
	JobSalaryPeriod   string   `json:"job_salary_period"`

	JobPostedAtTimestamp   *int64 `json:"job_posted_at_timestamp"`
	JobPostedAtDatetimeUTC string `json:"job_posted_at_datetime_utc"`
	JobOfferExpirationUTC  string `json:"job_offer_expiration_datetime_utc"`
	JobApplyLink           string `json:"job_apply_link"`

	JobRequiredSkills []string             `json:"job_required_skills"`
	JobBenefits       []string             `json:"job_benefits"`
	JobHighlights     *model.JobHighlights `json:"job_highlights"`
}

// ConvertJSearchJob maps a JSearch listing onto Job. JSearch already uses
// the Job field names, so this mostly applies defaults.
func ConvertJSearchJob(r JSearchJob) model.Job {
	job := model.Job{
		JobID:                  r.JobID,
		JobPublisher:           orDefault(r.JobPublisher, "JSearch"),
		JobTitle:               strings.TrimSpace(r.JobTitle),
		JobDescription:         htmlToText(r.JobDescription),
		EmployerName:           strings.TrimSpace(r.EmployerName),
		EmployerWebsite:        r.EmployerWebsite,
		EmployerLogo:           r.EmployerLogo,
		JobCity:                r.JobCity,
		JobState:               r.JobState,
		JobCountry:             orDefault(r.JobCountry, "US"),
		JobLatitude:            r.JobLatitude,
		JobLongitude:           r.JobLongitude,
		JobEmploymentType:      orDefault(strings.ToUpper(r.JobEmploymentType), "FULLTIME"),
		JobMinSalary:           r.JobMinSalary,
		JobMaxSalary:           r.JobMaxSalary,
		JobSalaryCurrency:      orDefault(r.JobSalaryCurrency, "USD"),
		JobSalaryPeriod:        orDefault(strings.ToUpper(r.JobSalaryPeriod), "YEAR"),
		JobPostedAtDatetimeUTC: r.JobPostedAtDatetimeUTC,
		JobOfferExpirationUTC:  r.JobOfferExpirationUTC,
		JobApplyLink:           r.JobApplyLink,
		JobRequiredSkills:      r.JobRequiredSkills,
		JobBenefits:            r.JobBenefits,
		JobHighlights:          r.JobHighlights,
	}
	if r.JobIsRemote != nil {
		job.JobIsRemote = *r.JobIsRemote
	}
	if r.JobPostedAtTimestamp != nil {
		job.JobPostedAtTimestamp = *r.JobPostedAtTimestamp
	} else if t, err := time.Parse(time.RFC3339, r.JobPostedAtDatetimeUTC); err == nil {
		job.JobPostedAtTimestamp = t.Unix()
	}
	return job
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// Search issues one request covering params.NumPages pages. The upstream
// location filter is unreliable, so results are re-filtered locally and
// both lists are returned.
func (c *JSearchClient) Search(ctx context.Context, params model.JobSearchParams) (res *model.ProviderResult, err error) {
	if !c.Configured() {
		return nil, &apierror.ValidationError{
			Field: "JSEARCH_API_KEY",
			Msg:   "JSearch API key not configured: set JSEARCH_API_KEY or RAPIDAPI_KEY",
		}
	}
	p := params.Normalize()

	q := url.Values{}
	q.Set("query", p.Query)
	if p.Location != "" && !strings.EqualFold(p.Location, "remote") {
		q.Set("location", p.Location)
		q.Set("radius", strconv.Itoa(p.Radius))
	}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("num_pages", strconv.Itoa(p.NumPages))
	if p.RemoteOnly {
		q.Set("remote_jobs_only", "true")
	}

	header := http.Header{}
	header.Set("X-RapidAPI-Key", c.APIKey)
	header.Set("X-RapidAPI-Host", c.Host)

	start := c.now()
	body, resp, err := c.get(ctx, JSearchID, strings.TrimRight(c.baseURL, "/")+"/search?"+q.Encode(), header)
	defer func() {
		if err != nil {
			c.recordFailure(JSearchID, "search", start, 0, resp, err)
		}
	}()
	if err != nil {
		return nil, err
	}

	var apiResp jsearchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	original := make([]model.Job, 0, len(apiResp.Data))
	for _, r := range apiResp.Data {
		original = append(original, ConvertJSearchJob(r))
	}

	data, applied := filter.ByLocation(original, p.Location)
	if p.RemoteOnly {
		data = filter.RemoteOnly(data)
	}

	// JSearch reports no total; a full batch means more pages likely exist.
	total := len(original)
	numPages := p.Page - 1 + pageCount(total, jsearchPageSize)
	if total >= jsearchPageSize*p.NumPages {
		numPages = p.Page + p.NumPages
	}

	info := c.recordSuccess(JSearchID, "search", start, 1, resp)
	c.logger.Debug("jsearch search", "query", p.Query, "location", p.Location,
		"results", len(data), "unfiltered", len(original), "location_filtered", applied)

	return &model.ProviderResult{
		Status:           model.StatusSuccess,
		Data:             data,
		OriginalData:     original,
		TotalCount:       total,
		NumPages:         numPages,
		LocationFiltered: applied,
		Quota:            info,
	}, nil
}
