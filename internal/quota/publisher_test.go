package quota

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPublisher_WarnsOnceAboveThreshold(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, ChannelQuotaWarning)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	tr := NewTracker(map[string]int{"jsearch": 10})
	p := NewPublisher(rdb, tr, 80)
	defer p.Close()

	tr.RecordUsage("jsearch", 7) // 70%: below threshold
	tr.RecordUsage("jsearch", 1) // 80%: warn
	tr.RecordUsage("jsearch", 1) // 90%: throttled

	ch := sub.Channel()
	select {
	case msg := <-ch:
		var body struct {
			Type  string       `json:"type"`
			Quota MonthlyQuota `json:"quota"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Type != ChannelQuotaWarning || body.Quota.CurrentUsage != 8 {
			t.Errorf("warning = %+v", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no quota warning published")
	}

	select {
	case msg := <-ch:
		t.Errorf("second warning within window: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}
