package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/filter"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

const (
	AdzunaID       = "adzuna"
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 20
	kmPerMile      = 1.609344
)

// AdzunaClient searches the Adzuna public API. App ID and key travel as
// query parameters.
type AdzunaClient struct {
	AppID   string
	AppKey  string
	Country string // "us", "gb", "fr", …
	base
}

// NewAdzunaClient constructs a client. An empty country means "us".
func NewAdzunaClient(appID, appKey, country string, opts ...Option) *AdzunaClient {
	if country == "" {
		country = "us"
	}
	return &AdzunaClient{
		AppID:   appID,
		AppKey:  appKey,
		Country: strings.ToLower(country),
		base:    newBase(adzunaBaseURL, opts),
	}
}

// Configured reports whether credentials are present.
func (c *AdzunaClient) Configured() bool {
	return c != nil && c.AppID != "" && c.AppKey != ""
}

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []AdzunaJob `json:"results"`
	Count   int         `json:"count"`
}

// AdzunaJob mirrors a single Adzuna job listing.
type AdzunaJob struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      AdzunaCompany  `json:"company"`
	Location     AdzunaLocation `json:"location"`
	SalaryMin    *float64       `json:"salary_min"`
	SalaryMax    *float64       `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
}

// AdzunaCompany is the listing's employer.
type AdzunaCompany struct {
	DisplayName string `json:"display_name"`
}

// AdzunaLocation is the listing's place.
type AdzunaLocation struct {
	DisplayName string   `json:"display_name"`
	Area        []string `json:"area"` // country, state, county…, city
}

var adzunaCurrency = map[string]string{
	"GB": "GBP", "UK": "GBP", "CA": "CAD", "AU": "AUD", "NZ": "NZD", "IN": "INR",
	"FR": "EUR", "DE": "EUR", "NL": "EUR", "IT": "EUR", "ES": "EUR", "AT": "EUR", "BE": "EUR",
	"PL": "PLN", "BR": "BRL", "MX": "MXN", "ZA": "ZAR", "SG": "SGD", "CH": "CHF",
}

// ConvertAdzunaJob maps an Adzuna listing onto Job. Missing text becomes "",
// country defaults to "US", employment type to "FULLTIME", and salary
// currency and period to the country's currency (else "USD") and "YEAR".
func ConvertAdzunaJob(r AdzunaJob) model.Job {
	job := model.Job{
		JobID:             r.ID,
		JobPublisher:      "Adzuna",
		JobTitle:          strings.TrimSpace(htmlToText(r.Title)),
		JobDescription:    htmlToText(r.Description),
		EmployerName:      strings.TrimSpace(r.Company.DisplayName),
		JobCountry:        "US",
		JobLatitude:       r.Latitude,
		JobLongitude:      r.Longitude,
		JobEmploymentType: adzunaEmploymentType(r.ContractTime, r.ContractType),
		JobMinSalary:      r.SalaryMin,
		JobMaxSalary:      r.SalaryMax,
		JobSalaryCurrency: "USD",
		JobSalaryPeriod:   "YEAR",
		JobApplyLink:      r.RedirectURL,
	}

	area := r.Location.Area
	if len(area) > 0 && strings.TrimSpace(area[0]) != "" {
		job.JobCountry = strings.ToUpper(strings.TrimSpace(area[0]))
	}
	if cur, ok := adzunaCurrency[job.JobCountry]; ok {
		job.JobSalaryCurrency = cur
	}
	if len(area) > 1 {
		job.JobState = strings.TrimSpace(area[1])
	}
	if len(area) > 2 {
		job.JobCity = strings.TrimSpace(area[len(area)-1])
	} else if len(area) == 0 && r.Location.DisplayName != "" {
		// "Austin, Travis County" style display names lead with the city
		parts := strings.Split(r.Location.DisplayName, ",")
		job.JobCity = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			job.JobState = strings.TrimSpace(parts[len(parts)-1])
		}
	}

	job.JobIsRemote = looksRemote(job.JobTitle, r.Location.DisplayName, job.JobDescription)

	if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
		job.JobPostedAtTimestamp = t.Unix()
		job.JobPostedAtDatetimeUTC = t.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return job
}

func adzunaEmploymentType(contractTime, contractType string) string {
	switch strings.ToLower(contractType) {
	case "contract":
		return "CONTRACTOR"
	}
	switch strings.ToLower(contractTime) {
	case "part_time":
		return "PARTTIME"
	case "full_time":
		return "FULLTIME"
	}
	return "FULLTIME"
}

func looksRemote(texts ...string) bool {
	for _, t := range texts {
		l := strings.ToLower(t)
		if strings.Contains(l, "remote") || strings.Contains(l, "work from home") {
			return true
		}
	}
	return false
}

// Search fetches params.NumPages pages starting at params.Page, stopping
// early on a short page. Each page is one billable call.
func (c *AdzunaClient) Search(ctx context.Context, params model.JobSearchParams) (res *model.ProviderResult, err error) {
	if !c.Configured() {
		return nil, &apierror.ValidationError{
			Field: "ADZUNA_APP_ID",
			Msg:   "Adzuna API credentials not configured: set ADZUNA_APP_ID and ADZUNA_APP_KEY",
		}
	}
	p := params.Normalize()

	start := c.now()
	var (
		jobs  []model.Job
		total int
		calls int
		last  = &lastCall{}
	)
	defer func() {
		if err != nil {
			c.recordFailure(AdzunaID, "search", start, calls, last.resp, err)
		}
	}()

	for page := p.Page; page < p.Page+p.NumPages; page++ {
		batch, count, err := c.fetchPage(ctx, p, page, last)
		if err != nil {
			return nil, fmt.Errorf("adzuna page %d: %w", page, err)
		}
		calls++
		total = count
		for _, r := range batch {
			jobs = append(jobs, ConvertAdzunaJob(r))
		}
		if len(batch) < adzunaPageSize {
			break
		}
	}

	original := jobs
	if original == nil {
		original = []model.Job{}
	}
	data := original
	if p.RemoteOnly {
		data = filter.RemoteOnly(original)
	}

	info := c.recordSuccess(AdzunaID, "search", start, calls, last.resp)
	c.logger.Debug("adzuna search", "query", p.Query, "location", p.Location, "results", len(data), "total", total)

	return &model.ProviderResult{
		Status:       model.StatusSuccess,
		Data:         data,
		OriginalData: original,
		TotalCount:   total,
		NumPages:     pageCount(total, adzunaPageSize),
		Quota:        info,
	}, nil
}

func (c *AdzunaClient) fetchPage(ctx context.Context, p model.JobSearchParams, page int, last *lastCall) ([]AdzunaJob, int, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", strings.TrimRight(c.baseURL, "/"), c.Country, page)

	q := url.Values{}
	q.Set("app_id", c.AppID)
	q.Set("app_key", c.AppKey)
	q.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	q.Set("what", p.Query)
	q.Set("content-type", "application/json")
	if p.Location != "" && !strings.EqualFold(p.Location, "remote") {
		q.Set("where", p.Location)
		q.Set("distance", strconv.Itoa(int(math.Round(float64(p.Radius)*kmPerMile))))
	}

	body, resp, err := c.get(ctx, AdzunaID, endpoint+"?"+q.Encode(), nil)
	last.resp = resp
	if err != nil {
		return nil, 0, err
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, 0, fmt.Errorf("json unmarshal: %w", err)
	}
	return apiResp.Results, apiResp.Count, nil
}
