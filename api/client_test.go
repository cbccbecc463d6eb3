package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL+"/api/v1", WithToken("secret"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetSendsQueryAndAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/customers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "john" {
			t.Errorf("unexpected search %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	})

	body, err := client.Get(context.Background(), "/customers", url.Values{"search": {"john"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "[]" {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestPostEncodesJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["name"] != "Color" {
			t.Errorf("unexpected payload %v", payload)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"f1"}}`))
	})

	if _, err := client.Post(context.Background(), "filters", map[string]string{"name": "Color"}); err != nil {
		t.Fatalf("post: %v", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   Kind
	}{
		{http.StatusBadRequest, `{"error":"invalid","details":["name is required"]}`, KindValidation},
		{http.StatusUnprocessableEntity, `{"error":"invalid"}`, KindValidation},
		{http.StatusUnauthorized, ``, KindUnauthorized},
		{http.StatusNotFound, `{"error":"not found"}`, KindNotFound},
		{http.StatusBadGateway, `<html>bad gateway</html>`, KindServer},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		})
		_, err := client.Get(context.Background(), "/inquiries/1", nil)
		if !IsKind(err, tc.kind) {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.kind, err)
		}
	}
}

func TestValidationErrorCarriesDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation failed","details":"sale_price must be positive"}`))
	})
	_, err := client.Put(context.Background(), "/products/1", map[string]int{"sale_price": -1})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Message != "validation failed" || len(apiErr.Details) != 1 {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if got := UserMessage(err, "Failed to update product"); got != "validation failed; sale_price must be positive" {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestServerErrorUsesGenericMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"pq: connection refused"}`))
	})
	_, err := client.Delete(context.Background(), "/inquiries/1")
	if got := UserMessage(err, "Failed to delete inquiry"); got != "Failed to delete inquiry" {
		t.Fatalf("server internals must not leak, got %q", got)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, _ := New(server.URL)
	server.Close()

	_, err := client.Get(context.Background(), "/dashboard/stats", nil)
	if !IsKind(err, KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestUploadSendsMultipartFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if header.Filename != "banner.png" || string(content) != "png-bytes" {
			t.Errorf("unexpected upload %s %q", header.Filename, content)
		}
		w.Write([]byte(`{"data":{"id":"img-1"}}`))
	})

	body, err := client.Upload(context.Background(), "/files", "file", "banner.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(string(body), "img-1") {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestBodyOverCapFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	})
	client.MaxBodyBytes = 10
	body, err := client.Get(context.Background(), "/big", nil)
	if !IsKind(err, KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds 10 bytes") {
		t.Fatalf("unexpected error %v", err)
	}
	if body != nil {
		t.Fatalf("expected no body, got %d bytes", len(body))
	}
}

func TestBodyAtCapIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ab"}`))
	})
	client.MaxBodyBytes = int64(len(`{"id":"ab"}`))
	body, err := client.Get(context.Background(), "/exact", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != `{"id":"ab"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	client, err := New("http://example.com", WithHTTPClient(shared), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if shared.Timeout != time.Minute {
		t.Fatalf("shared client timeout changed to %v", shared.Timeout)
	}
	if client.HTTPClient == shared || client.HTTPClient.Timeout != time.Second {
		t.Fatalf("expected a copy with a 1s timeout, got %+v", client.HTTPClient)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New("ftp://example.com"); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
}
