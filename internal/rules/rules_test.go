package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"go-current-affairs/internal/rules"
)

const sampleRules = `
sanskriti:
  article_page:
    item: "div.blog"
    title: "h4 a.text-danger||h4 a"
    title_url: "h4 a.text-danger@href||h4 a@href"
    meta_table: "table.table-bordered td"
    faq_heading: "FAQS"
    question_prefixes: ["Q.", "Q"]
default:
  article_page:
    item: "article"
    title: "h1"
    title_url: "h1 a@href"
`

func load(t *testing.T) *rules.Rules {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	r, err := rules.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return r
}

func TestGetPreset(t *testing.T) {
	r := load(t)
	p, ok := r.GetPreset("sanskriti")
	if !ok || p.ArticlePage == nil || p.ArticlePage.Item != "div.blog" {
		t.Fatalf("preset: %v %+v", ok, p)
	}
	// names resolve case-insensitively
	if p, ok = r.GetPreset("SANSKRITI"); !ok || p.ArticlePage.Item != "div.blog" {
		t.Fatalf("case-insensitive lookup failed: %v %+v", ok, p)
	}
	// unknown names fall back to the default preset
	if p, ok = r.GetPreset("unknown"); !ok || p.ArticlePage.Item != "article" {
		t.Fatalf("default fallback failed: %v %+v", ok, p)
	}
}

func TestResolveFallsBackToBuiltin(t *testing.T) {
	p := rules.Resolve(nil, "sanskriti")
	if p.ArticlePage == nil || p.ArticlePage.Item != "div.blog" {
		t.Fatalf("builtin preset: %+v", p)
	}
	if p.ArticlePage.FAQHeading != "FAQS" {
		t.Fatalf("faq heading: %q", p.ArticlePage.FAQHeading)
	}
	if len(p.ArticlePage.QuestionPrefixes) == 0 {
		t.Fatal("question prefixes missing")
	}
}

func TestResolvePrefersLoadedRules(t *testing.T) {
	r := load(t)
	p := rules.Resolve(r, "unknown-theme")
	if p.ArticlePage == nil || p.ArticlePage.Item != "article" {
		t.Fatalf("resolve: %+v", p)
	}
}
