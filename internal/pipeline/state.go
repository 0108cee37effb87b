package pipeline

import (
	"time"

	"github.com/google/uuid"

	"meeting-insights-go/internal/meeting"
)

// Status is the pipeline's state-machine position. Transitions only move
// forward; Failed and Completed are terminal.
type Status string

const (
	StatusPending         Status = "pending"
	StatusRetrievingFile  Status = "retrieving_file"
	StatusTranscribing    Status = "transcribing"
	StatusAnalyzing       Status = "analyzing"
	StatusGeneratingTitle Status = "generate_title"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// Stage names a pipeline stage for metrics and error attribution.
type Stage string

const (
	StageRetrieve   Stage = "retrieve_file"
	StageTranscribe Stage = "transcribe"
	StageAnalyze    Stage = "analyze"
	StageTitle      Stage = "generate_title"
)

// SourceKind selects how the source reference is interpreted.
type SourceKind string

const (
	// SourceKindObjectKey resolves the reference through the object store.
	SourceKindObjectKey SourceKind = "object_key"
	// SourceKindURL treats the reference as a directly fetchable URL.
	SourceKindURL SourceKind = "url"
)

// StageMetric is one entry in the per-stage metrics map. Durations are
// stored as milliseconds so the wire shape matches the key name.
type StageMetric struct {
	DurationMs int64  `json:"duration_ms"`
	Outcome    string `json:"outcome"` // success | failed
}

// PerformanceReport is synthesized once, after a completed run.
type PerformanceReport struct {
	TotalDurationMs int64 `json:"total_duration_ms"`
	StageCount      int   `json:"stage_count"`
	Successes       int   `json:"successes"`
	Failures        int   `json:"failures"`
}

// Options is the caller-supplied context for one run.
type Options struct {
	BucketName      string                         `json:"bucket_name,omitempty"`
	SourceKind      SourceKind                     `json:"source_kind,omitempty"`
	QAPairs         []meeting.QAPair               `json:"qa_pairs,omitempty"`
	Participants    map[string]meeting.Participant `json:"participants_info,omitempty"`
	MeetingDatetime string                         `json:"meeting_datetime,omitempty"`
	OnlyTitle       bool                           `json:"only_title,omitempty"`
	// ExpectedSpeakers is a hint for diarization; out-of-range values are
	// clamped by the transcription client, never rejected.
	ExpectedSpeakers int `json:"expected_speakers,omitempty"`
}

// State is the single mutable record threaded through every stage. A fresh
// State is created per Run and never shared across invocations.
type State struct {
	RunID string `json:"run_id"`

	// Input, immutable after creation.
	SourceRef string  `json:"source_ref"`
	Options   Options `json:"options"`

	// Derived, each written exactly once by exactly one stage.
	MediaURL           string                             `json:"media_url,omitempty"`
	Transcript         *meeting.Transcript                `json:"transcript,omitempty"`
	SpeakerPercentages map[string]float64                 `json:"speaker_percentages,omitempty"`
	SpeakerTimes       map[string]meeting.SpeakerTimeInfo `json:"speaker_times,omitempty"`
	Analysis           *meeting.AnalysisResult            `json:"analysis_result,omitempty"`

	// Bookkeeping.
	Status  Status                `json:"status"`
	Errors  []string              `json:"errors,omitempty"`
	Metrics map[Stage]StageMetric `json:"stage_metrics"`
	Report  *PerformanceReport    `json:"performance_report,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

func newState(sourceRef string, opts Options) *State {
	if opts.SourceKind == "" {
		opts.SourceKind = SourceKindObjectKey
	}
	return &State{
		RunID:     uuid.New().String(),
		SourceRef: sourceRef,
		Options:   opts,
		Status:    StatusPending,
		Metrics:   make(map[Stage]StageMetric),
		StartedAt: time.Now(),
	}
}

// advance moves the state machine to next. It refuses to leave a terminal
// state: there is no resurrection from failed.
func (s *State) advance(next Status) bool {
	if s.Status == StatusFailed || s.Status == StatusCompleted {
		return false
	}
	s.Status = next
	return true
}

// Failed reports whether the run has reached the failed terminal state.
func (s *State) Failed() bool { return s.Status == StatusFailed }

// fail appends a tagged error and moves to the failed terminal state.
// Errors are append-only; earlier entries are never cleared.
func (s *State) fail(kind ErrorKind, err error) {
	s.Errors = append(s.Errors, kind.Tag(err))
	s.Status = StatusFailed
}

// warn appends a tagged, non-fatal entry without touching the status.
func (s *State) warn(kind ErrorKind, msg string) {
	s.Errors = append(s.Errors, string(kind)+": "+msg)
}
