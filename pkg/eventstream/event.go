package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordCompleted is emitted after one context's pipeline
	// finishes, whether it produced a full record or a failure sentinel.
	EventTypeRecordCompleted = "telephone.record.completed"
)

// RecordCompletedEvent is a transport-neutral event payload for a completed
// per-context experiment record.
type RecordCompletedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	RunID       string `json:"run_id"`
	ContextName string `json:"context_name"`
	Mode        string `json:"mode"`

	QuestionIterations int  `json:"question_iterations"`
	QuestionConverged  bool `json:"question_converged"`
	AnswerIterations   int  `json:"answer_iterations"`
	AnswerConverged    bool `json:"answer_converged"`

	Failed        bool   `json:"failed"`
	FailureReason string `json:"failure_reason,omitempty"`
}
