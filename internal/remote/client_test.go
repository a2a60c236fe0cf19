package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnabled(t *testing.T) {
	if NewClient("", "").Enabled() {
		t.Error("client with no base URL should be disabled")
	}
	if !NewClient("http://localhost:9999", "").Enabled() {
		t.Error("client with a base URL should be enabled")
	}
	var nilClient *Client
	if nilClient.Enabled() {
		t.Error("nil client should be disabled")
	}
}

func TestCreateReward(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	if err := c.CreateReward(context.Background(), `{"id":"r1"}`); err != nil {
		t.Fatalf("create: %v", err)
	}

	if gotPath != "POST /api/rewards" {
		t.Errorf("request = %q, want POST /api/rewards", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth = %q, want bearer token", gotAuth)
	}
	if gotBody != `{"id":"r1"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestClaimReward(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.ClaimReward(context.Background(), "r2", `{"id":"r2"}`); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if gotPath != "POST /api/rewards/r2/claim" {
		t.Errorf("request = %q, want POST /api/rewards/r2/claim", gotPath)
	}
}

func TestErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"already claimed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.ClaimReward(context.Background(), "r3", `{}`)
	if err == nil {
		t.Fatal("expected an error for 409")
	}
	if got := err.Error(); got != "POST /api/rewards/r3/claim: already claimed (409)" {
		t.Errorf("error = %q", got)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "").Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
