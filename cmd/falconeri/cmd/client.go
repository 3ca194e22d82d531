package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"falconeri/pkg/api"
)

// Client talks to a Falconeri coordinator's REST facade over HTTP Basic
// auth.
type Client struct {
	BaseURL    string
	Password   string
	HTTPClient *http.Client
}

// NewClient creates a client for the coordinator at baseURL, authenticating
// every request as the "falconeri" user with password.
func NewClient(baseURL, password string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Password: password,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents a non-2xx response from the coordinator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("falconeri", c.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr api.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// CreateJob sends POST /jobs to submit a pipeline under name.
func (c *Client) CreateJob(name string, pipeline json.RawMessage) (*api.JobEnvelope, error) {
	var result api.JobEnvelope
	err := c.do(http.MethodPost, "/jobs", api.CreateJobRequest{Name: name, Pipeline: pipeline}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /jobs/list.
func (c *Client) ListJobs(limit, offset int) (*api.JobsEnvelope, error) {
	var result api.JobsEnvelope
	path := fmt.Sprintf("/jobs/list?limit=%d&offset=%d", limit, offset)
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /jobs/{id}.
func (c *Client) GetJob(jobID string) (*api.JobEnvelope, error) {
	var result api.JobEnvelope
	if err := c.do(http.MethodGet, "/jobs/"+jobID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DescribeJob sends GET /jobs/{id}/describe.
func (c *Client) DescribeJob(jobID string) (*api.JobDescribeResponse, error) {
	var result api.JobDescribeResponse
	if err := c.do(http.MethodGet, "/jobs/"+jobID+"/describe", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RetryJob sends POST /jobs/{id}/retry.
func (c *Client) RetryJob(jobID string) (*api.RetryJobResponse, error) {
	var result api.RetryJobResponse
	if err := c.do(http.MethodPost, "/jobs/"+jobID+"/retry", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DescribeDatum sends GET /datums/{id}/describe.
func (c *Client) DescribeDatum(datumID string) (*api.DatumDescribeResponse, error) {
	var result api.DatumDescribeResponse
	if err := c.do(http.MethodGet, "/datums/"+datumID+"/describe", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
