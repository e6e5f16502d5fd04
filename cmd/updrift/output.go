package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ChristinaDay/updrift-sub001/internal/location"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/quota"
)

const maxTitleWidth = 48

var currencySymbols = map[string]string{"USD": "$", "CAD": "C$", "AUD": "A$", "GBP": "£", "EUR": "€"}

func searchSummary(resp *model.JobSearchResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s of %s jobs", humanize.Comma(int64(len(resp.Data))), humanize.Comma(int64(resp.TotalCount)))
	if resp.Cached {
		b.WriteString(" (cached)")
	}
	if resp.Status == model.StatusMock {
		b.WriteString(" (sample data)")
	}
	if resp.HasMore {
		fmt.Fprintf(&b, ", page %d of %d", resp.Page, resp.NumPages)
	}
	return b.String()
}

func jobRows(jobs []model.Job, now time.Time) [][]string {
	rows := [][]string{{"Title", "Company", "Location", "Salary", "Posted", "Source"}}
	for _, j := range jobs {
		posted := ""
		if j.JobPostedAtTimestamp > 0 {
			posted = humanize.RelTime(time.Unix(j.JobPostedAtTimestamp, 0), now, "ago", "from now")
		}
		rows = append(rows, []string{
			truncate(j.JobTitle, maxTitleWidth),
			j.EmployerName,
			jobLocation(j),
			formatSalary(j),
			posted,
			j.JobPublisher,
		})
	}
	return rows
}

func jobLocation(j model.Job) string {
	if j.JobIsRemote {
		return "Remote"
	}
	var parts []string
	for _, p := range []string{j.JobCity, j.JobState, j.JobCountry} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// formatSalary renders "$85,000 - $120,000 / year". A one-sided range shows
// the known bound.
func formatSalary(j model.Job) string {
	if j.JobMinSalary == nil && j.JobMaxSalary == nil {
		return "n/a"
	}
	sym, ok := currencySymbols[strings.ToUpper(j.JobSalaryCurrency)]
	if !ok {
		sym = strings.ToUpper(j.JobSalaryCurrency) + " "
	}
	money := func(v float64) string { return sym + humanize.Comma(int64(math.Round(v))) }

	var s string
	switch {
	case j.JobMinSalary != nil && j.JobMaxSalary != nil && *j.JobMinSalary != *j.JobMaxSalary:
		s = money(*j.JobMinSalary) + " - " + money(*j.JobMaxSalary)
	case j.JobMinSalary != nil:
		s = money(*j.JobMinSalary)
	default:
		s = "up to " + money(*j.JobMaxSalary)
	}
	if j.JobSalaryPeriod != "" {
		s += " / " + strings.ToLower(j.JobSalaryPeriod)
	}
	return s
}

func quotaRows(qs []quota.MonthlyQuota) [][]string {
	rows := [][]string{{"Provider", "Used", "Limit", "Remaining", "Usage", "Resets"}}
	for _, q := range qs {
		rows = append(rows, []string{
			q.API,
			humanize.Comma(int64(q.CurrentUsage)),
			humanize.Comma(int64(q.Limit)),
			humanize.Comma(int64(q.RemainingQuota)),
			fmt.Sprintf("%.1f%%", q.UsagePercentage),
			q.ResetDate.UTC().Format("2006-01-02"),
		})
	}
	return rows
}

func suggestionRows(ss []model.LocationSuggestion) [][]string {
	rows := [][]string{{"Location", "Country", "Lat", "Lon"}}
	for _, s := range ss {
		rows = append(rows, []string{
			location.Label(s),
			strings.ToUpper(s.CountryCode),
			fmt.Sprintf("%.4f", s.Lat),
			fmt.Sprintf("%.4f", s.Lon),
		})
	}
	return rows
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
