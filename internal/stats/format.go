package stats

import (
	"fmt"
	"strings"

	"meeting-insights-go/internal/meeting"
)

// FormatSpeakingTime renders seconds as "Mm Ss", e.g. 95.4 -> "1m 35s".
func FormatSpeakingTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// FormatClock renders a millisecond offset as "MM:SS" (or "H:MM:SS" past an hour).
func FormatClock(ms int64) string {
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatTranscript renders utterances one per line as "[MM:SS] Name: text",
// applying the display-name mapping. Labels missing from the mapping keep
// their raw form.
func FormatTranscript(utterances []meeting.Utterance, mapping map[string]string) string {
	var b strings.Builder
	for i, u := range utterances {
		name, ok := mapping[u.Speaker]
		if !ok {
			name = u.Speaker
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", FormatClock(u.StartMs), name, u.Text)
	}
	return b.String()
}

// FormatDialogue renders utterances without timestamps ("Name: text" lines),
// the shape passed to the analysis model. Timing never reaches the LLM.
func FormatDialogue(utterances []meeting.Utterance, mapping map[string]string) string {
	var b strings.Builder
	for i, u := range utterances {
		name, ok := mapping[u.Speaker]
		if !ok {
			name = u.Speaker
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", name, u.Text)
	}
	return b.String()
}
