package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"falconeri/pkg/api"
)

func TestDescribeCommand_Success(t *testing.T) {
	resetViper()

	errMsg := "boom"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/jobs/job-1/describe") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.JobDescribeResponse{
			Job: api.JobResource{ID: "job-1", Name: "edges-run", Status: "error", CreatedAt: time.Now(), UpdatedAt: time.Now()},
			DatumStatusCounts: []api.DatumStatusCount{
				{Status: "done", Count: 3},
				{Status: "error", Count: 1},
			},
			FailedDatums: []api.DatumResource{
				{ID: "datum-1", AttemptedRunCount: 3, MaximumAllowedRunCount: 3, ErrorMessage: &errMsg},
			},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("password", "secret")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"describe", "job-1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "edges-run") {
		t.Errorf("expected job name in output, got: %s", output)
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("expected failed datum error message, got: %s", output)
	}
}

func TestDescribeCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "job not found", Kind: "not_found"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("password", "secret")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"describe", "missing-job"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "job not found") {
		t.Errorf("expected not-found message, got: %s", stdout.String())
	}
}
