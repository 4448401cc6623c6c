package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"karaoke/internal/api"
	"karaoke/internal/services"
	"karaoke/internal/workflow"
)

func TestNewClientEmptyBind(t *testing.T) {
	client, err := api.NewClient("", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
	if _, err := client.Jobs(context.Background()); !api.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestClientSubmitSendsTokenAndBody(t *testing.T) {
	var (
		gotAuth string
		gotReq  api.SubmitRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.JobResponse{Job: api.Job{JobID: "j1", Status: "pending", TotalFiles: 1}})
	}))
	defer srv.Close()

	client, err := api.NewClient(srv.URL, "secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	job, err := client.Submit(context.Background(), api.SubmitRequest{
		Files:   []workflow.FileInput{{Source: "/v/a.mp4"}},
		Options: workflow.Options{Style: "neon"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.JobID != "j1" {
		t.Fatalf("unexpected job %+v", job)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if len(gotReq.Files) != 1 || gotReq.Options.Style != "neon" {
		t.Fatalf("request body = %+v", gotReq)
	}
}

func TestClientMapsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/jobs/missing":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "job missing not found"})
		case "/api/jobs/busy":
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "job is processing"})
		}
	}))
	defer srv.Close()

	client, _ := api.NewClient(srv.URL, "")
	_, err := client.Job(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "job missing not found" {
		t.Fatalf("expected status error with message, got %v", err)
	}
	if err := client.Delete(context.Background(), "busy", true); !errors.Is(err, workflow.ErrJobProcessing) {
		t.Fatalf("expected job processing, got %v", err)
	}
}

func TestClientEventsBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("since") != "7" || q.Get("job") != "j1" || q.Get("wait") != "1" {
			t.Errorf("unexpected query %v", q)
		}
		_ = json.NewEncoder(w).Encode(api.EventsResponse{Events: []api.Event{{Sequence: 8, Type: "job_started", JobID: "j1"}}, Next: 8})
	}))
	defer srv.Close()

	client, _ := api.NewClient(srv.URL, "")
	resp, err := client.Events(context.Background(), 7, "j1", true)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if resp.Next != 8 || len(resp.Events) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIsAPIUnavailableForRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	client, _ := api.NewClient(addr, "")
	err := client.Health(context.Background())
	if !api.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
