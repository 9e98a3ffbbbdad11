package vector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-current-affairs/internal/model"
	"go-current-affairs/internal/vector"
)

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/readyz" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	q := vector.New(srv.URL, "current_affairs", 768)
	if err := q.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	down := vector.New("http://127.0.0.1:1", "current_affairs", 768)
	if err := down.Check(context.Background()); err == nil {
		t.Fatal("expected check failure")
	}
}

func TestEnsureCollection(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			http.NotFound(w, r)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/current_affairs":
			json.NewDecoder(r.Body).Decode(&created)
			w.Write([]byte(`{"result":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	q := vector.New(srv.URL, "current_affairs", 4)
	if err := q.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	vectors, _ := created["vectors"].(map[string]any)
	if vectors["size"] != float64(4) || vectors["distance"] != "Cosine" {
		t.Fatalf("collection body: %v", created)
	}
}

func TestEnsureCollectionAlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	q := vector.New(srv.URL, "current_affairs", 768)
	if err := q.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
}

func TestUpsert(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/current_affairs/points" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"result":true}`))
	}))
	defer srv.Close()

	a := model.Article{
		Title:         "ISRO to Launch Satellite",
		Source:        "Sanskriti IAS",
		SourceURL:     "https://ex/a1",
		PublishedDate: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
	}
	q := vector.New(srv.URL, "current_affairs", 4)
	err := q.Upsert(context.Background(), "point-1", []float32{0.1, 0.2, 0.3, 0.4}, vector.PayloadFor(a))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	points, _ := body["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points: %v", body)
	}
	p, _ := points[0].(map[string]any)
	if p["id"] != "point-1" {
		t.Fatalf("id=%v", p["id"])
	}
	payload, _ := p["payload"].(map[string]any)
	if payload["publishedDate"] != "2025-12-20" || payload["url"] != "https://ex/a1" {
		t.Fatalf("payload: %v", payload)
	}
}
