package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-insights-go/internal/meeting"
)

func TestMapSpeakersToNames(t *testing.T) {
	tests := []struct {
		name         string
		labels       []string
		participants map[string]meeting.Participant
		want         map[string]string
	}{
		{
			name:   "participant name wins, fallback by sorted position",
			labels: []string{"A", "B"},
			participants: map[string]meeting.Participant{
				"A": {Name: "Kim"},
			},
			// B is the second sorted label, so its fallback stays "B",
			// it does not shift into the freed-up "A".
			want: map[string]string{"A": "Kim", "B": "B"},
		},
		{
			name:   "all fallbacks in sorted order",
			labels: []string{"C", "A", "B"},
			want:   map[string]string{"A": "A", "B": "B", "C": "C"},
		},
		{
			name:   "unsorted input still deterministic",
			labels: []string{"B", "A"},
			participants: map[string]meeting.Participant{
				"B": {Name: "Lee"},
			},
			want: map[string]string{"A": "A", "B": "Lee"},
		},
		{
			name:   "empty participant name falls back",
			labels: []string{"A"},
			participants: map[string]meeting.Participant{
				"A": {Name: ""},
			},
			want: map[string]string{"A": "A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapSpeakersToNames(tt.labels, tt.participants)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapSpeakersToNames_deterministic(t *testing.T) {
	labels := []string{"B", "A", "D", "C"}
	participants := map[string]meeting.Participant{"C": {Name: "Park"}}

	first := MapSpeakersToNames(labels, participants)
	second := MapSpeakersToNames(labels, participants)
	assert.Equal(t, first, second, "two calls with identical inputs must agree")
}

func TestAggregateSpeakingTime(t *testing.T) {
	utterances := []meeting.Utterance{
		{Speaker: "A", StartMs: 0, EndMs: 1000},
		{Speaker: "B", StartMs: 1000, EndMs: 4000},
		{Speaker: "A", StartMs: 4000, EndMs: 4000}, // zero duration kept
	}
	got := AggregateSpeakingTime(utterances)
	assert.Equal(t, map[string]int64{"A": 1000, "B": 3000}, got)
}

func TestAggregateSpeakingTime_negativeDurationIncluded(t *testing.T) {
	utterances := []meeting.Utterance{
		{Speaker: "A", StartMs: 500, EndMs: 400},
		{Speaker: "A", StartMs: 600, EndMs: 1600},
	}
	got := AggregateSpeakingTime(utterances)
	assert.Equal(t, int64(900), got["A"])
}

func TestComputeTimeInfo_scenario(t *testing.T) {
	// Two utterances: A speaks 1s of [0,1000], B speaks 3s of [1000,4000].
	utterances := []meeting.Utterance{
		{Speaker: "A", StartMs: 0, EndMs: 1000},
		{Speaker: "B", StartMs: 1000, EndMs: 4000},
	}
	times := AggregateSpeakingTime(utterances)
	total := TotalSpeakingSeconds(times)
	require.Equal(t, 4.0, total)

	mapping := MapSpeakersToNames([]string{"A", "B"}, nil)
	info := ComputeTimeInfo(times, mapping, total)

	require.Contains(t, info, "A")
	require.Contains(t, info, "B")
	assert.Equal(t, 25.0, info["A"].Percentage)
	assert.Equal(t, 75.0, info["B"].Percentage)
	assert.Equal(t, 1.0, info["A"].TotalSeconds)
	assert.Equal(t, "0m 1s", info["A"].FormattedTime)
	assert.Equal(t, "0m 3s", info["B"].FormattedTime)

	assert.Equal(t, 4.0, MeetingDuration(utterances))
}

func TestComputeTimeInfo_zeroTotal(t *testing.T) {
	times := map[string]int64{"A": 0, "B": 0}
	info := ComputeTimeInfo(times, map[string]string{"A": "A", "B": "B"}, 0)
	for name, i := range info {
		assert.Zerof(t, i.Percentage, "speaker %s", name)
	}
}

func TestComputeTimeInfo_percentageBounds(t *testing.T) {
	times := map[string]int64{"A": 333, "B": 333, "C": 334}
	total := TotalSpeakingSeconds(times)
	info := ComputeTimeInfo(times, map[string]string{"A": "A", "B": "B", "C": "C"}, total)

	var sum float64
	for name, i := range info {
		assert.GreaterOrEqualf(t, i.Percentage, 0.0, "speaker %s", name)
		assert.LessOrEqualf(t, i.Percentage, 100.0, "speaker %s", name)
		sum += i.Percentage
	}
	// Independent rounding means the sum can drift, but only within 0.1
	// per speaker.
	assert.LessOrEqual(t, math.Abs(sum-100), 0.1*float64(len(info)))
}

func TestComputePercentages_matchesTimeInfo(t *testing.T) {
	times := map[string]int64{"A": 1000, "B": 3000}
	total := TotalSpeakingSeconds(times)
	pct := ComputePercentages(times, total)
	info := ComputeTimeInfo(times, map[string]string{"A": "A", "B": "B"}, total)
	assert.Equal(t, info["A"].Percentage, pct["A"])
	assert.Equal(t, info["B"].Percentage, pct["B"])
}

func TestComputePercentages_zeroTotal(t *testing.T) {
	pct := ComputePercentages(map[string]int64{"A": 0}, 0)
	assert.Equal(t, 0.0, pct["A"])
}

func TestMeetingDuration(t *testing.T) {
	tests := []struct {
		name       string
		utterances []meeting.Utterance
		want       float64
	}{
		{name: "empty", utterances: nil, want: 0},
		{
			name: "unordered spans",
			utterances: []meeting.Utterance{
				{Speaker: "B", StartMs: 2000, EndMs: 9000},
				{Speaker: "A", StartMs: 500, EndMs: 1500},
			},
			want: 8.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeetingDuration(tt.utterances))
		})
	}
}
