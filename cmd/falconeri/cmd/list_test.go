package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"falconeri/pkg/api"
)

func TestListCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.JobsEnvelope{
			Jobs: []api.JobResource{{ID: "job-1", Name: "edges-run", Status: "running"}},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("password", "secret")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"list"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "edges-run") {
		t.Errorf("expected job name in output, got: %s", output)
	}
}

func TestListCommand_Empty(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.JobsEnvelope{Jobs: nil})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("password", "secret")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"list"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "No jobs found") {
		t.Errorf("expected empty-list message, got: %s", stdout.String())
	}
}
