package search

import "github.com/ChristinaDay/updrift-sub001/internal/model"

func salary(v float64) *float64 { return &v }

// MockJobs returns the sample listings served when no provider is
// configured. Each call returns a fresh slice.
func MockJobs() []model.Job {
	return []model.Job{
		{
			JobID:                  "mock-1",
			JobPublisher:           "UpDrift",
			JobTitle:               "Senior Backend Engineer (Go)",
			JobDescription:         "Design and operate the services behind our job search platform.",
			EmployerName:           "Driftwood Labs",
			EmployerWebsite:        "https://driftwood.example",
			JobCity:                "Austin",
			JobState:               "TX",
			JobCountry:             "US",
			JobEmploymentType:      "FULLTIME",
			JobMinSalary:           salary(150000),
			JobMaxSalary:           salary(185000),
			JobSalaryCurrency:      "USD",
			JobSalaryPeriod:        "YEAR",
			JobPostedAtTimestamp:   1767225600,
			JobPostedAtDatetimeUTC: "2026-01-01T00:00:00.000Z",
			JobApplyLink:           "https://driftwood.example/careers/backend",
			JobRequiredSkills:      []string{"Go", "PostgreSQL", "Redis"},
		},
		{
			JobID:             "mock-2",
			JobPublisher:      "UpDrift",
			JobTitle:          "Frontend Developer",
			JobDescription:    "Build accessible search experiences in React and TypeScript.",
			EmployerName:      "Harbor & Pine",
			JobCity:           "Seattle",
			JobState:          "WA",
			JobCountry:        "US",
			JobEmploymentType: "FULLTIME",
			JobMinSalary:      salary(120000),
			JobMaxSalary:      salary(150000),
			JobSalaryCurrency: "USD",
			JobSalaryPeriod:   "YEAR",
			JobApplyLink:      "https://harborpine.example/jobs/fe",
		},
		{
			JobID:             "mock-3",
			JobPublisher:      "UpDrift",
			JobTitle:          "Platform Engineer",
			JobDescription:    "Own CI/CD and Kubernetes infrastructure. Fully remote within the US.",
			EmployerName:      "Northwind Cloud",
			JobCity:           "Denver",
			JobState:          "CO",
			JobCountry:        "US",
			JobIsRemote:       true,
			JobEmploymentType: "FULLTIME",
			JobSalaryCurrency: "USD",
			JobSalaryPeriod:   "YEAR",
			JobApplyLink:      "https://northwind.example/platform",
		},
		{
			JobID:             "mock-4",
			JobPublisher:      "UpDrift",
			JobTitle:          "Data Analyst (Contract)",
			JobDescription:    "Six-month contract analysing hiring funnel data.",
			EmployerName:      "Lumen Metrics",
			JobCity:           "New York",
			JobState:          "NY",
			JobCountry:        "US",
			JobEmploymentType: "CONTRACTOR",
			JobMinSalary:      salary(55),
			JobMaxSalary:      salary(70),
			JobSalaryCurrency: "USD",
			JobSalaryPeriod:   "HOUR",
			JobApplyLink:      "https://lumen.example/contract-analyst",
		},
		{
			JobID:             "mock-5",
			JobPublisher:      "UpDrift",
			JobTitle:          "Product Designer",
			JobDescription:    "Shape the end-to-end experience for job seekers. Hybrid, two days in office.",
			EmployerName:      "Driftwood Labs",
			JobCity:           "Austin",
			JobState:          "TX",
			JobCountry:        "US",
			JobEmploymentType: "PARTTIME",
			JobSalaryCurrency: "USD",
			JobSalaryPeriod:   "YEAR",
			JobApplyLink:      "https://driftwood.example/careers/design",
		},
	}
}
