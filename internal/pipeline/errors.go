package pipeline

import (
	"errors"

	"meeting-insights-go/internal/analysis"
	"meeting-insights-go/internal/storage"
	"meeting-insights-go/internal/transcription"
)

// ErrorKind tags entries in State.Errors so callers and alerting can tell
// failure classes apart without parsing messages.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "NotFoundError"
	KindTranscriptionError   ErrorKind = "TranscriptionProviderError"
	KindTranscriptionTimeout ErrorKind = "TranscriptionTimeoutError"
	KindEmptyTranscript      ErrorKind = "EmptyTranscriptWarning"
	KindAnalysisSchema       ErrorKind = "AnalysisSchemaError"
	KindInternal             ErrorKind = "InternalStageError"
)

// Tag renders "Kind: detail" for the append-only error list.
func (k ErrorKind) Tag(err error) string {
	return string(k) + ": " + err.Error()
}

// classify maps a collaborator error to its taxonomy kind. Anything
// unrecognized is an internal stage error.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	case errors.Is(err, transcription.ErrTimeout):
		return KindTranscriptionTimeout
	case errors.Is(err, transcription.ErrProvider):
		return KindTranscriptionError
	case errors.Is(err, analysis.ErrSchema):
		return KindAnalysisSchema
	default:
		return KindInternal
	}
}
