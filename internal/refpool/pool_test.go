package refpool

import (
	"strconv"
	"testing"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

func newTestRecord(id string) *model.Record {
	r := model.NewRecord()
	r.Set("customer_id", model.String(id))
	return r
}

func TestAppendAndLookup(t *testing.T) {
	p := New()
	p.SetIDField("customers", "customer_id")

	if err := p.Append("customers", newTestRecord("CUST_0001")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := p.Count("customers"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	rec, err := p.Lookup("customers", "CUST_0001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	v, _ := rec.Get("customer_id")
	if s, _ := v.String(); s != "CUST_0001" {
		t.Fatalf("got %q", s)
	}
}

func TestLookupMissingReturnsMissingReference(t *testing.T) {
	p := New()
	p.SetIDField("customers", "customer_id")
	_, err := p.Lookup("customers", "NOPE")
	if !errkind.Is(err, errkind.MissingReference) {
		t.Fatalf("want MissingReference, got %v", err)
	}
}

func TestSampleEmptyPoolReturnsEmptyPool(t *testing.T) {
	p := New()
	p.SetIDField("customers", "customer_id")
	_, err := p.SampleID("customers", model.DistUniform, 1.0, false)
	if !errkind.Is(err, errkind.EmptyPool) {
		t.Fatalf("want EmptyPool, got %v", err)
	}
}

func TestSampleUniformReturnsAppendedID(t *testing.T) {
	p := New()
	p.SetIDField("customers", "customer_id")
	ids := []string{"CUST_0001", "CUST_0002", "CUST_0003"}
	for _, id := range ids {
		if err := p.Append("customers", newTestRecord(id)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	for i := 0; i < 50; i++ {
		id, err := p.SampleID("customers", model.DistUniform, 1.0, false)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		found := false
		for _, want := range ids {
			if id == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("sampled id %q not in appended set", id)
		}
	}
}

func TestZipfConcentratesOnEarlyInsertedIDs(t *testing.T) {
	p := New()
	p.SetIDField("customers", "customer_id")
	const n = 100
	for i := 1; i <= n; i++ {
		id := model.NewRecord()
		id.Set("customer_id", model.Int64(int64(i)))
		if err := p.Append("customers", id); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	const draws = 10000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		id, err := p.SampleID("customers", model.DistZipf, 1.5, false)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		counts[id]++
	}

	most := counts["1"]
	least := counts["100"]
	if share := float64(most) / draws; share <= 0.15 {
		t.Fatalf("most-frequent share = %.3f, want > 0.15", share)
	}
	if share := float64(least) / draws; share >= 0.01 {
		t.Fatalf("least-frequent share = %.3f, want < 0.01", share)
	}
}

func TestRecencyBiasRestrictsToRecentWindow(t *testing.T) {
	p := New()
	p.SetIDField("orders", "order_id")
	p.SetTrackRecent("orders", true)
	for i := 1; i <= recencyWindow+10; i++ {
		id := model.NewRecord()
		id.Set("order_id", model.Int64(int64(i)))
		if err := p.Append("orders", id); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	for i := 0; i < 200; i++ {
		id, err := p.SampleID("orders", model.DistUniform, 1.0, true)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			t.Fatalf("parse id: %v", err)
		}
		if n <= 10 {
			t.Fatalf("recency-biased sample %d should exclude earliest ids", n)
		}
	}
}

func TestRecencyBiasWithoutTrackRecentFallsBackToFullPool(t *testing.T) {
	p := New()
	p.SetIDField("orders", "order_id")
	// track_recent is never set (defaults false): the ring stays empty,
	// so a recency-biased sample must still cover the entire pool
	// instead of indexing into nothing.
	for i := 1; i <= 20; i++ {
		id := model.NewRecord()
		id.Set("order_id", model.Int64(int64(i)))
		if err := p.Append("orders", id); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	seenEarliest := false
	for i := 0; i < 200; i++ {
		id, err := p.SampleID("orders", model.DistUniform, 1.0, true)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if id == "1" {
			seenEarliest = true
		}
	}
	if !seenEarliest {
		t.Fatal("expected recency-biased sampling to still reach the earliest id when track_recent is unset")
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	p := New()
	p.SetIDField("customers", "customer_id")
	if err := p.Append("customers", newTestRecord("CUST_0001")); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := p.Append("customers", newTestRecord("CUST_0001"))
	if err == nil {
		t.Fatal("want error on duplicate id, got nil")
	}
}
