package judge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codecampus/internal/judge"
	"codecampus/internal/judge/judgepb"
	appErr "codecampus/pkg/errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubJudge struct {
	mu       sync.Mutex
	response *judgepb.ExecuteResponse
	err      error
	delay    time.Duration
	calls    int
}

func (s *stubJudge) Execute(ctx context.Context, in *judgepb.ExecuteRequest, opts ...grpc.CallOption) (*judgepb.ExecuteResponse, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, status.Error(codes.DeadlineExceeded, ctx.Err().Error())
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func (s *stubJudge) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func acceptedResponse(n int) *judgepb.ExecuteResponse {
	results := make([]*judgepb.TestResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, &judgepb.TestResult{Status: judgepb.StatusAccepted, TimeMs: 10, MemoryKb: 1024})
	}
	return &judgepb.ExecuteResponse{Results: results}
}

func TestClient_InvokeReturnsFullVerdictSet(t *testing.T) {
	stub := &stubJudge{response: acceptedResponse(3)}
	client := judge.NewClientWithStub(stub, judge.ClientConfig{})

	verdicts, err := client.Invoke(context.Background(), "print(1)", "python", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(verdicts) != 3 {
		t.Fatalf("got %d verdicts, want 3", len(verdicts))
	}
	for _, v := range verdicts {
		if v.Status != judgepb.StatusAccepted {
			t.Errorf("Status = %q, want AC", v.Status)
		}
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		stubErr  error
		wantCode appErr.ErrorCode
	}{
		{"deadline exceeded", status.Error(codes.DeadlineExceeded, "deadline"), appErr.JudgeTimeout},
		{"unavailable", status.Error(codes.Unavailable, "down"), appErr.JudgeUnavailable},
		{"other grpc error", status.Error(codes.Internal, "boom"), appErr.TransportFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubJudge{err: tt.stubErr}
			client := judge.NewClientWithStub(stub, judge.ClientConfig{})

			_, err := client.Invoke(context.Background(), "code", "go", []string{"in"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := appErr.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestClient_CallDeadlineEnforced(t *testing.T) {
	stub := &stubJudge{delay: time.Second, response: acceptedResponse(1)}
	client := judge.NewClientWithStub(stub, judge.ClientConfig{CallTimeout: 20 * time.Millisecond})

	_, err := client.Invoke(context.Background(), "code", "go", []string{"in"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := appErr.GetCode(err); got != appErr.JudgeTimeout {
		t.Errorf("code = %v, want %v", got, appErr.JudgeTimeout)
	}
}

func TestClient_IncompleteVerdictSetIsTransportFailure(t *testing.T) {
	stub := &stubJudge{response: acceptedResponse(1)}
	client := judge.NewClientWithStub(stub, judge.ClientConfig{})

	verdicts, err := client.Invoke(context.Background(), "code", "go", []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for partial verdict set")
	}
	if verdicts != nil {
		t.Error("partial results must never be returned")
	}
	if got := appErr.GetCode(err); got != appErr.TransportFailed {
		t.Errorf("code = %v, want %v", got, appErr.TransportFailed)
	}
}

func TestClient_AdmissionControlRejectsImmediately(t *testing.T) {
	release := time.Second
	stub := &stubJudge{delay: release, response: acceptedResponse(1)}
	client := judge.NewClientWithStub(stub, judge.ClientConfig{MaxInFlight: 1, CallTimeout: 5 * time.Second})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = client.Invoke(context.Background(), "code", "go", []string{"in"})
		close(done)
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	_, err := client.Invoke(context.Background(), "code", "go", []string{"in"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected rejection while a call is in flight")
	}
	if got := appErr.GetCode(err); got != appErr.JudgeQueueFull {
		t.Errorf("code = %v, want %v", got, appErr.JudgeQueueFull)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("rejection took %v, must be immediate", elapsed)
	}
	if stub.callCount() != 1 {
		t.Errorf("stub called %d times, rejected caller must not reach the judge", stub.callCount())
	}
	<-done
}
