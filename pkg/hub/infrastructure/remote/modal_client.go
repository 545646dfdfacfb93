package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"

	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

const moduleName = "remote"

// ModalClientParams holds the dependencies injected via DI.
type ModalClientParams struct {
	fx.In
	Config *cfg.Config
}

// ModalClient is an implementation of port.ComputeProvider that talks to the
// Modal execution service's HTTP API. Submit fires an async prediction and
// returns the provider's call id; Poll reports where that call currently is.
type ModalClient struct {
	apiEndpoint string
	apiKey      string
	httpClient  *http.Client
}

// NewModalClient creates a ModalClient from the batch configuration.
func NewModalClient(p ModalClientParams) port.ComputeProvider {
	batchConfig := p.Config.Hub.Batch

	timeout := time.Duration(batchConfig.RequestTimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &ModalClient{
		apiEndpoint: strings.TrimRight(batchConfig.APIEndpoint, "/"),
		apiKey:      batchConfig.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type submitRequestBody struct {
	JobID    string        `json:"job_id"`
	TaskType string        `json:"task_type"`
	Input    model.Payload `json:"input"`
	Priority string        `json:"priority,omitempty"`
}

type submitResponseBody struct {
	CallID string `json:"call_id"`
	Detail string `json:"detail,omitempty"`
}

type pollResponseBody struct {
	Status string        `json:"status"`
	Result model.Payload `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Submit posts one prediction to the provider and returns its call id.
// A non-2xx response is a terminal rejection for this job only.
func (c *ModalClient) Submit(ctx context.Context, req port.SubmissionRequest) (string, error) {
	body, err := json.Marshal(submitRequestBody{
		JobID:    req.JobID,
		TaskType: req.TaskType,
		Input:    req.Input,
		Priority: req.Priority,
	})
	if err != nil {
		return "", exception.NewHubError(moduleName, fmt.Sprintf("failed to encode submission for job '%s'", req.JobID), err, true, false)
	}

	url := fmt.Sprintf("%s/v1/predictions", c.apiEndpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", exception.NewHubError(moduleName, "failed to build submission request", err, true, false)
	}
	c.setHeaders(httpReq)

	logger.Debugf("ModalClient: Submitting job '%s' (task '%s') to %s.", req.JobID, req.TaskType, url)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", exception.NewHubError(moduleName, fmt.Sprintf("submission request for job '%s' failed", req.JobID), err, true, true)
	}
	defer resp.Body.Close()

	var decoded submitResponseBody
	if err := decodeResponse(resp, &decoded); err != nil {
		return "", exception.NewHubError(moduleName, fmt.Sprintf("provider rejected job '%s'", req.JobID), err, true, false)
	}
	if decoded.CallID == "" {
		return "", exception.NewHubErrorf(moduleName, "provider returned no call id for job '%s'", req.JobID)
	}

	logger.Infof("ModalClient: Job '%s' submitted, call id '%s'.", req.JobID, decoded.CallID)
	return decoded.CallID, nil
}

// Poll fetches the current state of the call behind handle. A 404 maps to
// port.ErrHandleNotFound so callers can keep treating the job as running
// while the provider's view catches up.
func (c *ModalClient) Poll(ctx context.Context, handle string) (*port.PollResult, error) {
	url := fmt.Sprintf("%s/v1/predictions/%s", c.apiEndpoint, handle)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, exception.NewHubError(moduleName, "failed to build poll request", err, false, false)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, exception.NewHubError(moduleName, fmt.Sprintf("poll request for handle '%s' failed", handle), err, false, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, port.ErrHandleNotFound
	}

	var decoded pollResponseBody
	if err := decodeResponse(resp, &decoded); err != nil {
		return nil, exception.NewHubError(moduleName, fmt.Sprintf("poll for handle '%s' returned an error", handle), err, false, true)
	}

	result := &port.PollResult{Result: decoded.Result, Error: decoded.Error}
	switch decoded.Status {
	case "completed", "succeeded":
		result.Status = port.ComputeStatusCompleted
	case "failed", "error", "timeout":
		result.Status = port.ComputeStatusFailed
		if result.Error == "" {
			result.Error = fmt.Sprintf("provider reported status '%s'", decoded.Status)
		}
	default:
		// pending, queued, running and anything unknown all count as in flight.
		result.Status = port.ComputeStatusRunning
	}
	return result, nil
}

func (c *ModalClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// decodeResponse decodes a JSON body into out, turning non-2xx statuses into
// errors that carry the response text.
func decodeResponse(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

var _ port.ComputeProvider = (*ModalClient)(nil)
