package onfido

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateApplicant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token token=test-token" {
			t.Errorf("Expected api token header, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/applicants":
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("Couldn't decode applicant body: %v", err)
			}
			if body["first_name"] != "Ada" || body["last_name"] != "Lovelace" {
				t.Errorf("Unexpected applicant body: %+v", body)
			}
			w.Write([]byte(`{"id": "applicant-1"}`))
		case "/sdk_token":
			w.Write([]byte(`{"token": "sdk-token-1"}`))
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	endpoint := NewEndpoint("test-token", NewSimulatedInterface(server.URL))
	applicant, err := endpoint.CreateApplicant(context.Background(), "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Couldn't create applicant: %v", err)
	}
	if applicant.ID != "applicant-1" || applicant.SDKToken != "sdk-token-1" {
		t.Fatalf("Unexpected applicant: %+v", applicant)
	}
}

func TestCreateCheckAndGetChecks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/applicants/applicant-1/checks" {
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id": "check-1", "status": "in_progress"}`))
			return
		}
		w.Write([]byte(`{"checks": [{"id": "check-1", "status": "complete", "result": "clear"}]}`))
	}))
	defer server.Close()

	endpoint := NewEndpoint("test-token", NewSimulatedInterface(server.URL))
	ctx := context.Background()

	check, err := endpoint.CreateCheck(ctx, "applicant-1", "0x00a329c0648769a73afac7f9381e08fb43dbea72")
	if err != nil {
		t.Fatalf("Couldn't create check: %v", err)
	}
	if check.ID != "check-1" || check.ApplicantID != "applicant-1" {
		t.Fatalf("Unexpected check: %+v", check)
	}

	checks, err := endpoint.GetChecks(ctx, "applicant-1")
	if err != nil {
		t.Fatalf("Couldn't get checks: %v", err)
	}
	if len(checks) != 1 || checks[0].Result != "clear" {
		t.Fatalf("Unexpected checks: %+v", checks)
	}
}

func TestVendorErrorIsSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"type": "validation_error"}}`))
	}))
	defer server.Close()

	endpoint := NewEndpoint("test-token", NewSimulatedInterface(server.URL))
	if _, err := endpoint.CreateApplicant(context.Background(), "Ada", "Lovelace"); err == nil {
		t.Fatalf("Expected vendor error to be surfaced")
	}
}
