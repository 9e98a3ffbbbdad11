package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-current-affairs/internal/extract"
	"go-current-affairs/internal/source"
)

const pibFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>PIB Releases</title>
<item>
<title>Cabinet approves scheme</title>
<link>https://pib.gov.in/r/1</link>
<description>&lt;p&gt;The Union Cabinet approved...&lt;/p&gt;Share this article on social media</description>
<pubDate>Sat, 20 Dec 2025 11:30:00 +0530</pubDate>
</item>
<item>
<title>Earlier release</title>
<link>https://pib.gov.in/r/2</link>
<description>old</description>
<pubDate>Fri, 19 Dec 2025 09:00:00 +0530</pubDate>
</item>
</channel></rss>`

func TestPIBEnumerateFiltersByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(pibFeed))
	}))
	defer srv.Close()

	p := source.NewPIB(client(t), srv.URL)
	frags, err := p.Enumerate(context.Background(), time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("fragments=%d want=1: %+v", len(frags), frags)
	}
	if frags[0].Title != "Cabinet approves scheme" || frags[0].URL != "https://pib.gov.in/r/1" {
		t.Fatalf("fragment: %+v", frags[0])
	}
}

func TestPIBExtract(t *testing.T) {
	p := source.NewPIB(nil, "")
	frag := source.Fragment{
		HTML:  "<p>The Union Cabinet approved...</p>Share this article on social media",
		URL:   "https://pib.gov.in/r/1",
		Title: "Cabinet approves scheme",
		Date:  time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
	}
	a, err := p.Extract(frag)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if a.Source != source.PIBName {
		t.Fatalf("source=%q", a.Source)
	}
	if len(a.Content) != 1 || a.Content[0].Heading != "Press Release" {
		t.Fatalf("content: %+v", a.Content)
	}
	// tags stripped and share-bait trailer removed
	if a.Content[0].Content != "The Union Cabinet approved..." {
		t.Fatalf("body=%q", a.Content[0].Content)
	}
	if a.FAQs == nil || a.Images == nil {
		t.Fatal("faqs/images must be empty slices, not nil")
	}
}

func TestPIBExtractMandatoryFields(t *testing.T) {
	p := source.NewPIB(nil, "")
	cases := []struct {
		frag   source.Fragment
		reason string
	}{
		{source.Fragment{URL: "https://x", HTML: "body"}, extract.ReasonMissingTitle},
		{source.Fragment{Title: "T", HTML: "body"}, extract.ReasonMissingURL},
		{source.Fragment{Title: "T", URL: "https://x"}, extract.ReasonEmptyBody},
	}
	for _, tc := range cases {
		_, err := p.Extract(tc.frag)
		var ee *extract.Error
		if !errors.As(err, &ee) || ee.Reason != tc.reason {
			t.Fatalf("frag=%+v err=%v want=%s", tc.frag, err, tc.reason)
		}
	}
}
