package event

import (
	"encoding/json"

	appErr "codecampus/pkg/errors"
)

// Action selects the handler a consumer routes an envelope to. The set is
// shared by all producers and consumers; consumers must tolerate actions
// they do not know yet.
type Action string

const (
	// ActionSubmissionCreate announces a judged, persisted submission.
	ActionSubmissionCreate Action = "SUBMISSION_CREATE"

	// ActionAnswerQuestion announces a user answering a video interactive.
	ActionAnswerQuestion Action = "ANSWER_QUESTION"
)

// Envelope is the wire message unit exchanged over the broker.
// RequestID names the business fact the envelope announces; redelivery of
// the same RequestID must not change its effect.
type Envelope struct {
	Action    Action          `json:"action"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

// SubmissionCreateData is the payload of ActionSubmissionCreate.
type SubmissionCreateData struct {
	SubmissionID string `json:"submissionId"`
	UserID       int64  `json:"userId"`
	ProblemID    int64  `json:"problemId"`
	Verdict      string `json:"verdict"`
	TimeMs       int64  `json:"timeMs"`
	MemoryKb     int64  `json:"memoryKb"`
}

// AnswerQuestionData is the payload of ActionAnswerQuestion.
type AnswerQuestionData struct {
	VideoID       string `json:"videoId"`
	InteractiveID int64  `json:"interactiveId"`
	UserID        int64  `json:"userId"`
}

// NewEnvelope builds an envelope with a marshaled payload.
func NewEnvelope(action Action, data interface{}, requestID string) (*Envelope, error) {
	if action == "" {
		return nil, appErr.ValidationError("action", "required")
	}
	if requestID == "" {
		return nil, appErr.ValidationError("requestId", "required")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidFormat, "encode event data failed")
	}
	return &Envelope{Action: action, Data: raw, RequestID: requestID}, nil
}

// Encode serializes the envelope for the wire.
func (e *Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidFormat, "encode envelope failed")
	}
	return body, nil
}

// DecodeEnvelope parses a wire message. Structurally malformed bodies and
// envelopes without an action can never succeed and are reported as
// permanent failures.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, appErr.Wrapf(err, appErr.EnvelopeMalformed, "decode envelope failed")
	}
	if env.Action == "" {
		return nil, appErr.New(appErr.EnvelopeMalformed).WithMessage("envelope missing action")
	}
	return &env, nil
}

// DecodeData unmarshals the envelope payload into out.
func (e *Envelope) DecodeData(out interface{}) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return appErr.Wrapf(err, appErr.ValidationFailed, "decode event data failed")
	}
	return nil
}
