package aggregator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/aggregator"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/provider"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func jobs(publisher string, ids ...string) []model.Job {
	out := make([]model.Job, len(ids))
	for i, id := range ids {
		out[i] = model.Job{JobID: id, JobPublisher: publisher, JobTitle: publisher + " " + id}
	}
	return out
}

func fixed(id string, data []model.Job, total int) provider.Provider {
	return provider.Provider{
		ID: id,
		Search: func(context.Context, model.JobSearchParams) (*model.ProviderResult, error) {
			return &model.ProviderResult{Status: model.StatusSuccess, Data: data, TotalCount: total}, nil
		},
	}
}

func failing(id string, err error) provider.Provider {
	return provider.Provider{
		ID: id,
		Search: func(context.Context, model.JobSearchParams) (*model.ProviderResult, error) {
			return nil, err
		},
	}
}

// ── Fault isolation ────────────────────────────────────────────────────────

func TestSearchAllProviders_OneProviderFails(t *testing.T) {
	reg := provider.NewRegistry(
		failing("broken", errors.New("boom")),
		fixed("good", jobs("Good", "1", "2", "3"), 57),
	)
	res := aggregator.New(reg, aggregator.WithLogger(quiet)).
		SearchAllProviders(context.Background(), model.JobSearchParams{Query: "go"})

	if len(res.Data) != 3 {
		t.Fatalf("Data = %d jobs, want 3", len(res.Data))
	}
	if res.TotalCount != 57 {
		t.Errorf("TotalCount = %d, want 57", res.TotalCount)
	}
	if res.Outcomes[0].OK || res.Outcomes[0].Error != "boom" {
		t.Errorf("broken outcome = %+v", res.Outcomes[0])
	}
	if !res.Outcomes[1].OK || res.Outcomes[1].Jobs != 3 {
		t.Errorf("good outcome = %+v", res.Outcomes[1])
	}
}

func TestSearchAllProviders_PanicIsContained(t *testing.T) {
	reg := provider.NewRegistry(
		provider.Provider{ID: "panics", Search: func(context.Context, model.JobSearchParams) (*model.ProviderResult, error) {
			panic("nil map")
		}},
		fixed("good", jobs("Good", "1"), 1),
	)
	res := aggregator.New(reg, aggregator.WithLogger(quiet)).
		SearchAllProviders(context.Background(), model.JobSearchParams{})
	if len(res.Data) != 1 || res.Outcomes[0].OK {
		t.Errorf("res = %+v", res)
	}
}

func TestSearchAllProviders_AllFail(t *testing.T) {
	reg := provider.NewRegistry(failing("a", errors.New("x")), failing("b", errors.New("y")))
	res := aggregator.New(reg, aggregator.WithLogger(quiet)).
		SearchAllProviders(context.Background(), model.JobSearchParams{})
	if res.Data == nil || len(res.Data) != 0 || res.TotalCount != 0 {
		t.Errorf("res = %+v", res)
	}
}

// ── Concurrency ────────────────────────────────────────────────────────────

func TestSearchAllProviders_RunsConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := func(id string) provider.Provider {
		return provider.Provider{ID: id, Search: func(context.Context, model.JobSearchParams) (*model.ProviderResult, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			inFlight.Add(-1)
			return &model.ProviderResult{Data: jobs(id, id)}, nil
		}}
	}
	reg := provider.NewRegistry(slow("a"), slow("b"), slow("c"))
	aggregator.New(reg).SearchAllProviders(context.Background(), model.JobSearchParams{})
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d, want providers to overlap", peak.Load())
	}
}

// ── Dedup ──────────────────────────────────────────────────────────────────

func TestSearchAllProviders_DedupKeepsFirstProvider(t *testing.T) {
	reg := provider.NewRegistry(
		fixed("first", jobs("Adzuna", "1", "2"), 2),
		fixed("second", jobs("LinkedIn", "2", "3"), 2),
	)
	agg := aggregator.New(reg)
	res := agg.SearchAllProviders(context.Background(), model.JobSearchParams{})

	if len(res.Data) != 3 {
		t.Fatalf("Data = %d, want 3", len(res.Data))
	}
	if res.Data[1].JobID != "2" || res.Data[1].JobPublisher != "Adzuna" {
		t.Errorf("collision kept %+v, want first provider's job", res.Data[1])
	}
	// reported totals are summed, not the deduplicated length
	if res.TotalCount != 4 {
		t.Errorf("TotalCount = %d, want 4", res.TotalCount)
	}
	if len(res.OriginalData) != 4 {
		t.Errorf("OriginalData = %d, want 4", len(res.OriginalData))
	}

	again := agg.SearchAllProviders(context.Background(), model.JobSearchParams{})
	if !reflect.DeepEqual(res.Data, again.Data) || res.TotalCount != again.TotalCount {
		t.Error("re-invocation with the same providers gave a different result")
	}
}

func TestSearchAllProviders_DedupByPublisher(t *testing.T) {
	reg := provider.NewRegistry(
		fixed("first", jobs("Adzuna", "1", "2"), 2),
		fixed("second", jobs("LinkedIn", "2", "3"), 2),
		fixed("third", jobs("adzuna", "1"), 1),
	)
	res := aggregator.New(reg, aggregator.DedupByPublisher()).
		SearchAllProviders(context.Background(), model.JobSearchParams{})
	if len(res.Data) != 4 {
		t.Errorf("Data = %d, want 4 (publisher-qualified keys)", len(res.Data))
	}
}

func TestSearchAllProviders_EmptyRegistry(t *testing.T) {
	res := aggregator.New(provider.NewRegistry()).SearchAllProviders(context.Background(), model.JobSearchParams{})
	if len(res.Data) != 0 || len(res.Outcomes) != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestSearchAllProviders_Observer(t *testing.T) {
	reg := provider.NewRegistry(
		fixed("good", jobs("Good", "1"), 1),
		failing("broken", errors.New("boom")),
	)
	seen := map[string]bool{}
	agg := aggregator.New(reg,
		aggregator.WithLogger(quiet),
		aggregator.WithObserver(func(o aggregator.Outcome) { seen[o.Provider] = o.OK }),
	)
	agg.SearchAllProviders(context.Background(), model.JobSearchParams{Query: "go"})

	if want := map[string]bool{"good": true, "broken": false}; !reflect.DeepEqual(seen, want) {
		t.Errorf("observed = %v, want %v", seen, want)
	}
}
