// Package filter narrows provider results after they come back: red-flag
// exclusion, remote-only, and location re-filtering.
package filter

import (
	"strings"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

// ExcludeRedFlags drops every job whose title, employer or description
// mentions one of redFlags, ignoring case, and reports how many were dropped.
// Blank terms are ignored.
func ExcludeRedFlags(jobs []model.Job, redFlags []string) (kept []model.Job, dropped int) {
	terms := make([]string, 0, len(redFlags))
	for _, f := range redFlags {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			terms = append(terms, f)
		}
	}
	if len(terms) == 0 {
		return jobs, 0
	}

	kept = make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if mentionsAny(terms, j.JobTitle, j.EmployerName, j.JobDescription) {
			dropped++
			continue
		}
		kept = append(kept, j)
	}
	return kept, dropped
}

func mentionsAny(terms []string, fields ...string) bool {
	for _, field := range fields {
		field = strings.ToLower(field)
		for _, t := range terms {
			if strings.Contains(field, t) {
				return true
			}
		}
	}
	return false
}

// RemoteOnly keeps the jobs flagged remote.
func RemoteOnly(jobs []model.Job) []model.Job {
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.JobIsRemote {
			out = append(out, j)
		}
	}
	return out
}
