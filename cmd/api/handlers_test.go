package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-insights-go/internal/directory"
	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/meeting"
	"meeting-insights-go/internal/pipeline"
)

type fakeRunner struct {
	calls    int
	lastRef  string
	lastOpts pipeline.Options
	state    *pipeline.State
}

func (f *fakeRunner) Run(ctx context.Context, sourceRef string, opts pipeline.Options) *pipeline.State {
	f.calls++
	f.lastRef = sourceRef
	f.lastOpts = opts
	return f.state
}

type fakeDirectory struct {
	records map[string]directory.Record
}

func (f *fakeDirectory) Lookup(id string) (*directory.Record, bool) {
	rec, ok := f.records[id]
	if !ok {
		return nil, false
	}
	return &rec, true
}

func newTestServer(runner *fakeRunner, dir directory.Directory) *server {
	return &server{pipe: runner, roster: dir, log: logger.New()}
}

func postAnalyze(t *testing.T, srv *server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)
	return rec
}

func TestHandleAnalyze_completedRun(t *testing.T) {
	runner := &fakeRunner{state: &pipeline.State{
		RunID:  "run-1",
		Status: pipeline.StatusCompleted,
		Analysis: &meeting.AnalysisResult{Title: "Weekly 1-on-1"},
	}}
	srv := newTestServer(runner, nil)

	rec := postAnalyze(t, srv, `{"source_ref": "rec-123", "bucket_name": "archive"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "rec-123", runner.lastRef)
	assert.Equal(t, "archive", runner.lastOpts.BucketName)

	var got pipeline.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, pipeline.StatusCompleted, got.Status)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "Weekly 1-on-1", got.Analysis.Title)
}

func TestHandleAnalyze_failedRunMapsTo422(t *testing.T) {
	runner := &fakeRunner{state: &pipeline.State{
		Status: pipeline.StatusFailed,
		Errors: []string{"NotFoundError: resolve rec-404: object not found"},
	}}
	srv := newTestServer(runner, nil)

	rec := postAnalyze(t, srv, `{"source_ref": "rec-404"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var got pipeline.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "NotFoundError")
}

func TestHandleAnalyze_badRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"source_ref": `},
		{"missing source_ref on full path", `{"only_title": false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{state: &pipeline.State{Status: pipeline.StatusCompleted}}
			srv := newTestServer(runner, nil)

			rec := postAnalyze(t, srv, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, runner.calls, "pipeline must not run on a bad request")
		})
	}
}

func TestHandleAnalyze_titleOnlyWithoutSourceRef(t *testing.T) {
	runner := &fakeRunner{state: &pipeline.State{
		Status:   pipeline.StatusCompleted,
		Analysis: &meeting.AnalysisResult{Title: "Kickoff"},
	}}
	srv := newTestServer(runner, nil)

	rec := postAnalyze(t, srv, `{"only_title": true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)
	assert.True(t, runner.lastOpts.OnlyTitle)
}

func TestHandleAnalyze_rosterEnrichment(t *testing.T) {
	runner := &fakeRunner{state: &pipeline.State{Status: pipeline.StatusCompleted}}
	dir := &fakeDirectory{records: map[string]directory.Record{
		"u-100": {ID: "u-100", Name: "Kim", Role: "Manager"},
	}}
	srv := newTestServer(runner, dir)

	rec := postAnalyze(t, srv, `{
		"source_ref": "rec-1",
		"participant_ids": {"A": "u-100", "B": "u-999"},
		"participants_info": {"A": {"name": "Override"}}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := runner.lastOpts.Participants
	// Explicit participants_info wins over the roster; unknown member IDs
	// are skipped.
	assert.Equal(t, meeting.Participant{Name: "Override"}, got["A"])
	assert.NotContains(t, got, "B")
}

func TestHandleAnalyze_rosterMissingStillRuns(t *testing.T) {
	runner := &fakeRunner{state: &pipeline.State{Status: pipeline.StatusCompleted}}
	srv := newTestServer(runner, nil)

	rec := postAnalyze(t, srv, `{"source_ref": "rec-1", "participant_ids": {"A": "u-100"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeRunner{state: &pipeline.State{}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
