package analysis

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"meeting-insights-go/internal/meeting"
)

// promptVars is the placeholder contract of the analysis template. Renaming
// a field here breaks the template, so the two move together.
type promptVars struct {
	Transcript      string
	SpeakerStats    string
	Participants    string
	QAPairs         string
	MeetingDatetime string
}

const analysisTemplate = `You are an assistant that analyzes 1-on-1 meeting transcripts.

Meeting datetime: {{.MeetingDatetime}}

Participants:
{{.Participants}}

Share of speaking time:
{{.SpeakerStats}}

Questions prepared before the meeting:
{{.QAPairs}}

Transcript:
{{.Transcript}}

Produce a JSON object with exactly these keys:
  "title": short title for the meeting,
  "discussion": list of {"topic", "summary", "details"} covering what was discussed,
  "feedback": list of {"target", "point", "suggestion"},
  "positive_aspects": list of strings,
  "qa_pairs": list of {"question", "answer"} echoing each prepared question with the answer found in the transcript (empty answer if never addressed).

Ground every field in the transcript. Do not invent content.
Return ONLY the JSON object, no commentary, no markdown fences.`

const titleTemplate = `You are an assistant that names 1-on-1 meetings.

Participants:
{{.Participants}}

Questions prepared before the meeting:
{{.QAPairs}}

Meeting datetime: {{.MeetingDatetime}}

Return a single short title for this meeting as plain text. No quotes, no JSON.`

var (
	analysisPrompt = template.Must(template.New("analysis").Parse(analysisTemplate))
	titlePrompt    = template.Must(template.New("title").Parse(titleTemplate))
)

func renderPrompt(t *template.Template, vars promptVars) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// renderSpeakerStats formats a display-name-keyed percentage map as one
// "Name: NN.N%" line per speaker, sorted by name for stable prompts.
func renderSpeakerStats(percentages map[string]float64) string {
	names := make([]string, 0, len(percentages))
	for name := range percentages {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %.1f%%", name, percentages[name])
	}
	if b.Len() == 0 {
		return "(unknown)"
	}
	return b.String()
}

func renderParticipants(mapping map[string]string, participants map[string]meeting.Participant) string {
	labels := make([]string, 0, len(mapping))
	for label := range mapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var b strings.Builder
	for i, label := range labels {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := mapping[label]
		if p, ok := participants[label]; ok && p.Role != "" {
			fmt.Fprintf(&b, "%s (%s)", name, p.Role)
		} else {
			b.WriteString(name)
		}
	}
	if b.Len() == 0 {
		return "(unknown)"
	}
	return b.String()
}

func renderQuestions(questions []string) string {
	if len(questions) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, q)
	}
	return b.String()
}
