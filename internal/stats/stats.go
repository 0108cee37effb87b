// Package stats holds the pure talk-time computations over diarized
// utterances. Nothing here touches the network or mutates its inputs, so the
// same functions are safe to call from both transcript formatting and result
// post-processing — and they must agree when called twice with the same input.
package stats

import (
	"fmt"
	"math"
	"sort"

	"meeting-insights-go/internal/meeting"
)

// MapSpeakersToNames assigns a display name to every raw speaker label.
// Labels are sorted lexicographically first so the assignment is
// deterministic. A label present in participants gets the supplied name;
// otherwise it falls back to a single letter picked by sorted position
// ('A' for the first sorted label, 'B' for the second, ...).
func MapSpeakersToNames(labels []string, participants map[string]meeting.Participant) map[string]string {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)

	mapping := make(map[string]string, len(sorted))
	for i, label := range sorted {
		if p, ok := participants[label]; ok && p.Name != "" {
			mapping[label] = p.Name
			continue
		}
		mapping[label] = fallbackName(i)
	}
	return mapping
}

func fallbackName(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("Speaker %d", i+1)
}

// AggregateSpeakingTime sums utterance durations per raw label, in
// milliseconds. Zero or negative durations are included as-is.
func AggregateSpeakingTime(utterances []meeting.Utterance) map[string]int64 {
	times := make(map[string]int64)
	for _, u := range utterances {
		times[u.Speaker] += u.EndMs - u.StartMs
	}
	return times
}

// TotalSpeakingSeconds is the sum of all per-speaker times, in seconds.
// Silence between utterances does not count.
func TotalSpeakingSeconds(speakerTimes map[string]int64) float64 {
	var total int64
	for _, ms := range speakerTimes {
		total += ms
	}
	return float64(total) / 1000
}

// ComputePercentages derives the raw-label-keyed share of speaking time,
// rounded to one decimal. A zero total yields all-zero percentages.
func ComputePercentages(speakerTimes map[string]int64, totalSpeakingSeconds float64) map[string]float64 {
	pct := make(map[string]float64, len(speakerTimes))
	for label, ms := range speakerTimes {
		if totalSpeakingSeconds > 0 {
			seconds := float64(ms) / 1000
			pct[label] = math.Round(seconds/totalSpeakingSeconds*1000) / 10
		} else {
			pct[label] = 0
		}
	}
	return pct
}

// ComputeTimeInfo builds the display-name-keyed talk-time summary.
// Percentages are rounded to one decimal independently per speaker, so the
// column does not necessarily sum to exactly 100. A zero total yields zero
// percentages rather than a division error.
func ComputeTimeInfo(speakerTimes map[string]int64, mapping map[string]string, totalSpeakingSeconds float64) map[string]meeting.SpeakerTimeInfo {
	info := make(map[string]meeting.SpeakerTimeInfo, len(speakerTimes))
	for label, ms := range speakerTimes {
		name, ok := mapping[label]
		if !ok {
			name = label
		}
		seconds := float64(ms) / 1000
		var pct float64
		if totalSpeakingSeconds > 0 {
			pct = math.Round(seconds/totalSpeakingSeconds*1000) / 10
		}
		info[name] = meeting.SpeakerTimeInfo{
			TotalSeconds:  seconds,
			FormattedTime: FormatSpeakingTime(seconds),
			Percentage:    pct,
		}
	}
	return info
}

// MeetingDuration is the wall-clock span of the recording in seconds:
// earliest utterance start to latest utterance end. Empty input is 0.
func MeetingDuration(utterances []meeting.Utterance) float64 {
	if len(utterances) == 0 {
		return 0
	}
	minStart := utterances[0].StartMs
	maxEnd := utterances[0].EndMs
	for _, u := range utterances[1:] {
		if u.StartMs < minStart {
			minStart = u.StartMs
		}
		if u.EndMs > maxEnd {
			maxEnd = u.EndMs
		}
	}
	return float64(maxEnd-minStart) / 1000
}
