package meeting

// Utterance is one continuous speech segment attributed to a single
// provider-assigned speaker label ("A", "B", ...). Offsets are milliseconds
// from the start of the recording.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

// Transcript is the terminal output of the transcription stage. Zero
// utterances is a valid transcript (no speech detected), not an error.
type Transcript struct {
	Utterances      []Utterance `json:"utterances"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// Empty reports whether no speech was detected.
func (t Transcript) Empty() bool { return len(t.Utterances) == 0 }

// SpeakerTimeInfo is the per-display-name talk-time summary. Percentage is
// of total speaking time, not wall-clock duration.
type SpeakerTimeInfo struct {
	TotalSeconds  float64 `json:"total_seconds"`
	FormattedTime string  `json:"formatted_time"`
	Percentage    float64 `json:"percentage"`
}

// Participant maps a raw speaker label to a human identity supplied by the caller.
type Participant struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// QAPair is a pre-supplied question, optionally with the answer the
// analysis found for it in the transcript.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}
