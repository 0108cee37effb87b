package meeting

import (
	"errors"
	"fmt"
)

// DiscussionTopic is one agenda item in the hierarchical summary.
type DiscussionTopic struct {
	Topic   string   `json:"topic"`
	Summary string   `json:"summary"`
	Details []string `json:"details,omitempty"`
}

// FeedbackItem is a single piece of constructive feedback surfaced by the model.
type FeedbackItem struct {
	Target     string `json:"target"`
	Point      string `json:"point"`
	Suggestion string `json:"suggestion,omitempty"`
}

// AnalysisResult is the schema-constrained report produced by the LLM.
// A result that fails Validate must never be attached to a pipeline run.
type AnalysisResult struct {
	Title           string            `json:"title"`
	Discussion      []DiscussionTopic `json:"discussion"`
	Feedback        []FeedbackItem    `json:"feedback"`
	PositiveAspects []string          `json:"positive_aspects"`
	QAPairs         []QAPair          `json:"qa_pairs"`

	// SpeakerTimes is attached by post-processing, keyed by display name,
	// never by raw provider label.
	SpeakerTimes map[string]SpeakerTimeInfo `json:"speaker_times,omitempty"`
}

var errEmptyTitle = errors.New("analysis result has empty title")

// Validate enforces the structural contract on a decoded model response.
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return errors.New("analysis result is nil")
	}
	if r.Title == "" {
		return errEmptyTitle
	}
	for i, d := range r.Discussion {
		if d.Topic == "" {
			return fmt.Errorf("discussion[%d] has empty topic", i)
		}
	}
	for i, f := range r.Feedback {
		if f.Point == "" {
			return fmt.Errorf("feedback[%d] has empty point", i)
		}
	}
	return nil
}
