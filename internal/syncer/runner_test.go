package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-current-affairs/internal/config"
	"go-current-affairs/internal/extract"
	"go-current-affairs/internal/model"
	"go-current-affairs/internal/source"
	"go-current-affairs/internal/store"
	"go-current-affairs/internal/syncer"
)

// fakeAdapter serves canned fragments; a fragment with HTML "bad" fails extraction.
type fakeAdapter struct {
	frags   []source.Fragment
	enumErr error
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Enumerate(_ context.Context, _ time.Time) ([]source.Fragment, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return f.frags, nil
}

func (f *fakeAdapter) Extract(frag source.Fragment) (model.Article, error) {
	if frag.HTML == "bad" {
		return model.Article{}, &extract.Error{Reason: extract.ReasonMissingTitle}
	}
	return model.Article{
		Title:         frag.Title,
		Source:        "fake",
		SourceURL:     frag.URL,
		PublishedDate: frag.Date,
		Metadata:      model.Metadata{Tags: []string{}},
		Content:       []model.Section{{Heading: "H", Content: "body"}},
		FAQs:          []model.FAQ{},
		Images:        []model.Image{},
		ExtractedAt:   time.Now(),
	}, nil
}

func testStore(t *testing.T) *store.SQLite {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func day() (time.Time, model.DateRange) {
	d := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	return d, model.NewDateRange(d, d)
}

func frags(d time.Time, n int) []source.Fragment {
	out := make([]source.Fragment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, source.Fragment{
			HTML:  "ok",
			URL:   fmt.Sprintf("https://ex/a%d", i),
			Title: fmt.Sprintf("T%d", i),
			Date:  d,
		})
	}
	return out
}

func TestRun_Idempotent(t *testing.T) {
	d, dr := day()
	st := testStore(t)
	ad := &fakeAdapter{frags: frags(d, 2)}
	r := syncer.New(&config.Config{}, st, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if run.Fetched != 2 || run.Inserted != 2 || run.Duplicate != 0 || run.Failed != 0 {
		t.Fatalf("first run: %+v", run)
	}

	// second pass over the same window must insert nothing
	run, err = r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if run.Inserted != 0 || run.Duplicate != 2 {
		t.Fatalf("second run: %+v", run)
	}
}

func TestRun_PartialFailureIsolated(t *testing.T) {
	d, dr := day()
	st := testStore(t)
	fs := frags(d, 4)
	fs = append(fs, source.Fragment{HTML: "bad", Date: d})
	ad := &fakeAdapter{frags: fs}
	r := syncer.New(&config.Config{}, st, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Fetched != 5 || run.Inserted != 4 || run.Failed != 1 {
		t.Fatalf("run: %+v", run)
	}
	if len(run.Reasons) != 1 || run.Reasons[0] != extract.ReasonMissingTitle {
		t.Fatalf("reasons: %v", run.Reasons)
	}
}

func TestRun_SameURLWithinRun(t *testing.T) {
	d, dr := day()
	st := testStore(t)
	fs := frags(d, 1)
	fs = append(fs, fs[0]) // same article listed twice
	ad := &fakeAdapter{frags: fs}
	r := syncer.New(&config.Config{}, st, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Inserted != 1 || run.Duplicate != 1 {
		t.Fatalf("run: %+v", run)
	}
}

func TestRun_Canceled(t *testing.T) {
	d, dr := day()
	st := testStore(t)
	ad := &fakeAdapter{frags: frags(d, 2)}
	r := syncer.New(&config.Config{}, st, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := r.Run(ctx, ad, dr)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want canceled", err)
	}
	if run.Source != "fake" || run.FinishedAt.IsZero() {
		t.Fatalf("partial run not filled: %+v", run)
	}
}

// timeoutThenOKAdapter fails the first Enumerate with a client-timeout-shaped
// error and serves fragments afterwards.
type timeoutThenOKAdapter struct {
	fakeAdapter
	calls int
}

func (a *timeoutThenOKAdapter) Enumerate(ctx context.Context, date time.Time) ([]source.Fragment, error) {
	a.calls++
	if a.calls == 1 {
		return nil, fmt.Errorf("GET date page: %w", context.DeadlineExceeded)
	}
	return a.fakeAdapter.Enumerate(ctx, date)
}

func TestRun_FetchTimeoutDoesNotAbortRun(t *testing.T) {
	d1 := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	dr := model.NewDateRange(d1, d2)
	st := testStore(t)
	ad := &timeoutThenOKAdapter{fakeAdapter: fakeAdapter{frags: frags(d2, 1)}}
	r := syncer.New(&config.Config{}, st, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// the timed-out day is a per-date failure, later days still run
	if ad.calls != 2 {
		t.Fatalf("calls=%d want=2", ad.calls)
	}
	if run.Fetched != 1 || run.Inserted != 1 {
		t.Fatalf("run: %+v", run)
	}
	if len(run.Reasons) != 1 || !strings.Contains(run.Reasons[0], "fetch 2025-12-19") {
		t.Fatalf("reasons: %v", run.Reasons)
	}
}

func TestRun_SourceUnreachableAbsorbed(t *testing.T) {
	_, dr := day()
	st := testStore(t)
	ad := &fakeAdapter{enumErr: &net.DNSError{Err: "no such host", Name: "ex"}}
	r := syncer.New(&config.Config{}, st, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("unreachable must not escape: %v", err)
	}
	if len(run.Reasons) == 0 {
		t.Fatal("expected unreachable reason recorded")
	}
}

func TestRun_StorageLostTerminates(t *testing.T) {
	d, dr := day()
	st := testStore(t)
	st.Close()
	ad := &fakeAdapter{frags: frags(d, 1)}
	r := syncer.New(&config.Config{}, st, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err == nil {
		t.Fatal("expected storage error to escape")
	}
	if !store.IsFatal(err) {
		t.Fatalf("err=%v, want fatal storage error", err)
	}
	if run.Fetched != 1 {
		t.Fatalf("partial stats missing: %+v", run)
	}
	if len(run.Reasons) != 1 || !strings.HasPrefix(run.Reasons[0], "storage connection lost") {
		t.Fatalf("reasons: %v", run.Reasons)
	}
}

func TestRun_DryRunBuffers(t *testing.T) {
	d, dr := day()
	fs := frags(d, 2)
	fs = append(fs, fs[0])
	ad := &fakeAdapter{frags: fs}
	r := syncer.New(&config.Config{DryRun: true}, nil, nil, nil)

	run, err := r.Run(context.Background(), ad, dr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Inserted != 2 || run.Duplicate != 1 {
		t.Fatalf("run: %+v", run)
	}
	if got := r.BufferData(); len(got) != 2 {
		t.Fatalf("buffered=%d want=2", len(got))
	}
}

func TestBuffer_SnapshotOrder(t *testing.T) {
	b := syncer.NewBuffer()
	old := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	b.Add(model.Article{Title: "B", SourceURL: "u1", PublishedDate: old})
	b.Add(model.Article{Title: "A", SourceURL: "u2", PublishedDate: newer})
	b.Add(model.Article{Title: "C", SourceURL: "u3", PublishedDate: newer})
	if b.Add(model.Article{Title: "dup", SourceURL: "u1", PublishedDate: newer}) {
		t.Fatal("duplicate url accepted")
	}
	got := b.Snapshot()
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	// newest date first, same-day ties broken by title
	if got[0].Title != "A" || got[1].Title != "C" || got[2].Title != "B" {
		t.Fatalf("order: %s %s %s", got[0].Title, got[1].Title, got[2].Title)
	}
}
