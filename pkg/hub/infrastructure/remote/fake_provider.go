package remote

import (
	"context"
	"fmt"
	"sync"

	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// FakeProvider is an in-memory port.ComputeProvider for local runs and tests.
// Submitted handles start out running; tests drive them to a terminal state
// through Complete and Fail.
type FakeProvider struct {
	mu      sync.Mutex
	seq     int
	calls   map[string]*port.PollResult
	jobByID map[string]string // job id -> handle

	// SubmitErr, when set, makes every Submit fail with this error.
	SubmitErr error
	// PollErr, when set, makes every Poll fail with this error.
	PollErr error
}

// NewFakeProvider creates an empty FakeProvider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		calls:   make(map[string]*port.PollResult),
		jobByID: make(map[string]string),
	}
}

func (f *FakeProvider) Submit(_ context.Context, req port.SubmissionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	f.seq++
	handle := fmt.Sprintf("fake-call-%04d", f.seq)
	f.calls[handle] = &port.PollResult{Status: port.ComputeStatusRunning}
	f.jobByID[req.JobID] = handle
	return handle, nil
}

func (f *FakeProvider) Poll(_ context.Context, handle string) (*port.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PollErr != nil {
		return nil, f.PollErr
	}
	result, ok := f.calls[handle]
	if !ok {
		return nil, port.ErrHandleNotFound
	}
	copied := *result
	return &copied, nil
}

// Complete moves the given handle to completed with the given result payload.
func (f *FakeProvider) Complete(handle string, result model.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[handle] = &port.PollResult{Status: port.ComputeStatusCompleted, Result: result}
}

// Fail moves the given handle to failed with the given message.
func (f *FakeProvider) Fail(handle string, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[handle] = &port.PollResult{Status: port.ComputeStatusFailed, Error: message}
}

// Forget removes the handle entirely, so later polls see ErrHandleNotFound.
func (f *FakeProvider) Forget(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.calls, handle)
}

// HandleForJob returns the handle assigned to a submitted job id.
func (f *FakeProvider) HandleForJob(jobID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	handle, ok := f.jobByID[jobID]
	return handle, ok
}

// SubmittedCount reports how many submissions the provider has accepted.
func (f *FakeProvider) SubmittedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobByID)
}

var _ port.ComputeProvider = (*FakeProvider)(nil)
