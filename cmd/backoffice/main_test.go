package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func runCLI(t *testing.T, mux *http.ServeMux, stdin string, args ...string) (string, error) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	t.Setenv("BACKOFFICE_API_URL", server.URL)
	t.Setenv("BACKOFFICE_LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDashboardJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"customers":12,"products":40,"product_categories":5,"inquiries":9,"inquiries_by_status":{"pending":4,"in_progress":2,"resolved":2,"closed":1}}`))
	})
	out, err := runCLI(t, mux, "", "dashboard", "--json")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if stats["customers"] != float64(12) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestInquiriesListLoadsPages(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /inquiries", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("offset"))
		mu.Unlock()
		if r.URL.Query().Get("status") != "in_progress" {
			t.Errorf("unexpected status filter %q", r.URL.Query().Get("status"))
		}
		if r.URL.Query().Get("offset") == "0" {
			w.Write([]byte(`[{"id":"a","status":"in_progress"},{"id":"b","status":"in_progress"}]`))
			return
		}
		w.Write([]byte(`[{"id":"c","status":"in_progress","guest_contact":{"name":"Ravi"}}]`))
	})

	out, err := runCLI(t, mux, "", "inquiries", "list", "--limit", "2", "--pages", "5", "--status", "In Progress")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Ravi") || !strings.Contains(out, "3 inquiries, end of list") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(offsets) != 2 || offsets[1] != "2" {
		t.Fatalf("expected offsets 0 and 2, got %q", offsets)
	}
}

func TestInquiriesSearchQueriesSettledTerm(t *testing.T) {
	var (
		mu       sync.Mutex
		searches []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /inquiries", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		searches = append(searches, r.URL.Query().Get("search"))
		mu.Unlock()
		w.Write([]byte(`[]`))
	})

	out, err := runCLI(t, mux, "j\njo\njoh\njohn\n", "inquiries", "search", "--debounce", "200ms")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, `search "john": 0 results`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(searches) != 1 || searches[0] != "john" {
		t.Fatalf("expected one search=john request, got %q", searches)
	}
}

func TestNotFoundIsReported(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /inquiries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"inquiry not found"}`))
	})
	_, err := runCLI(t, mux, "", "inquiries", "get", "missing")
	if err == nil || err.Error() != "load inquiry: not found" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStatusRejectsUnknownValue(t *testing.T) {
	_, err := runCLI(t, http.NewServeMux(), "", "inquiries", "status", "a", "archived")
	if err == nil || !strings.Contains(err.Error(), "archived") {
		t.Fatalf("unexpected error %v", err)
	}
}
