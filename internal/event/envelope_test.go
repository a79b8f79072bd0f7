package event_test

import (
	"testing"

	"codecampus/internal/event"
	appErr "codecampus/pkg/errors"
)

func TestNewEnvelope(t *testing.T) {
	env, err := event.NewEnvelope(event.ActionAnswerQuestion, event.AnswerQuestionData{
		VideoID:       "v1",
		InteractiveID: 7,
		UserID:        42,
	}, "req-1")
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	if env.Action != event.ActionAnswerQuestion {
		t.Errorf("Action = %v, want %v", env.Action, event.ActionAnswerQuestion)
	}
	if env.RequestID != "req-1" {
		t.Errorf("RequestID = %v, want req-1", env.RequestID)
	}

	var data event.AnswerQuestionData
	if err := env.DecodeData(&data); err != nil {
		t.Fatalf("DecodeData() error = %v", err)
	}
	if data.VideoID != "v1" || data.InteractiveID != 7 || data.UserID != 42 {
		t.Errorf("DecodeData() = %+v", data)
	}
}

func TestNewEnvelope_MissingFields(t *testing.T) {
	if _, err := event.NewEnvelope("", nil, "req-1"); err == nil {
		t.Error("expected error for missing action")
	}
	if _, err := event.NewEnvelope(event.ActionSubmissionCreate, nil, ""); err == nil {
		t.Error("expected error for missing requestId")
	}
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantCode appErr.ErrorCode
	}{
		{
			name: "valid",
			body: `{"action":"ANSWER_QUESTION","data":{"videoId":"v1"},"requestId":"r1"}`,
		},
		{
			name:     "invalid json",
			body:     `{not json`,
			wantErr:  true,
			wantCode: appErr.EnvelopeMalformed,
		},
		{
			name:     "missing action",
			body:     `{"data":{},"requestId":"r1"}`,
			wantErr:  true,
			wantCode: appErr.EnvelopeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := event.DecodeEnvelope([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := appErr.GetCode(err); got != tt.wantCode {
					t.Errorf("code = %v, want %v", got, tt.wantCode)
				}
				if !appErr.IsPermanent(err) {
					t.Error("malformed envelope must be a permanent failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEnvelope() error = %v", err)
			}
			if env.Action != event.ActionAnswerQuestion {
				t.Errorf("Action = %v", env.Action)
			}
		})
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env, err := event.NewEnvelope(event.ActionSubmissionCreate, event.SubmissionCreateData{
		SubmissionID: "s1",
		UserID:       3,
		ProblemID:    9,
		Verdict:      "AC",
	}, "s1")
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	body, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := event.DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	var data event.SubmissionCreateData
	if err := decoded.DecodeData(&data); err != nil {
		t.Fatalf("DecodeData() error = %v", err)
	}
	if data.SubmissionID != "s1" || data.Verdict != "AC" {
		t.Errorf("round trip = %+v", data)
	}
}
