// Package pipeline orchestrates the meeting-analysis flow: resolve the
// audio artifact, transcribe it with diarization, analyze the transcript
// with the LLM, and assemble a performance report. Failure is signaled
// through the state, never by exceptions crossing stage boundaries.
package pipeline

import (
	"context"
	"fmt"

	"meeting-insights-go/internal/analysis"
	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/meeting"
	"meeting-insights-go/internal/metrics"
	"meeting-insights-go/internal/stats"
	"meeting-insights-go/internal/storage"
	"meeting-insights-go/internal/transcription"
)

// Pipeline composes the stage collaborators. All of them are injected so
// tests can substitute doubles; none are reached through package globals.
type Pipeline struct {
	resolver      storage.Resolver
	transcriber   transcription.Transcriber
	analyzer      analysis.Analyzer
	defaultBucket string
	metrics       *metrics.Metrics
	log           *logger.Logger
}

// New builds a pipeline. metrics may be nil when Prometheus is not wired.
func New(resolver storage.Resolver, transcriber transcription.Transcriber, analyzer analysis.Analyzer, defaultBucket string, m *metrics.Metrics, log *logger.Logger) *Pipeline {
	return &Pipeline{
		resolver:      resolver,
		transcriber:   transcriber,
		analyzer:      analyzer,
		defaultBucket: defaultBucket,
		metrics:       m,
		log:           log,
	}
}

// Run executes one pipeline invocation over a fresh state. The entry path
// is selected exactly once, from opts.OnlyTitle, before any stage runs. The
// returned state is always non-nil with Status completed or failed.
func (p *Pipeline) Run(ctx context.Context, sourceRef string, opts Options) *State {
	st := newState(sourceRef, opts)
	log := p.log.WithRun(st.RunID)
	log.WithField("source_ref", sourceRef).WithField("only_title", opts.OnlyTitle).Info("pipeline run started")

	if p.metrics != nil {
		done := p.metrics.RunStarted()
		defer done()
	}

	type step struct {
		stage Stage
		fn    stageFunc
	}
	var steps []step
	if opts.OnlyTitle {
		steps = []step{{StageTitle, p.generateTitle}}
	} else {
		steps = []step{
			{StageRetrieve, p.retrieveFile},
			{StageTranscribe, p.transcribe},
			{StageAnalyze, p.analyze},
		}
	}

	for _, s := range steps {
		if st.Failed() {
			break
		}
		p.runStage(ctx, st, s.stage, s.fn)
	}

	if !st.Failed() {
		st.Status = StatusCompleted
		st.Report = buildReport(st)
	}
	if p.metrics != nil {
		p.metrics.RunFinished(string(st.Status))
	}
	log.WithField("status", st.Status).WithField("errors", len(st.Errors)).Info("pipeline run finished")
	return st
}

// retrieveFile resolves the source reference to a fetchable media URL.
// Direct URLs skip the object-store lookup.
func (p *Pipeline) retrieveFile(ctx context.Context, st *State) {
	if st.Failed() || !st.advance(StatusRetrievingFile) {
		return
	}
	if st.Options.SourceKind == SourceKindURL {
		st.MediaURL = st.SourceRef
		return
	}

	bucket := st.Options.BucketName
	if bucket == "" {
		bucket = p.defaultBucket
	}
	url, err := p.resolver.Resolve(ctx, bucket, st.SourceRef)
	if err != nil {
		st.fail(classify(err), err)
		return
	}
	st.MediaURL = url
}

// transcribe submits the media URL and stores the transcript plus the
// raw-label speaker percentages. Zero utterances is recorded as a warning,
// not a failure.
func (p *Pipeline) transcribe(ctx context.Context, st *State) {
	if st.Failed() {
		return
	}
	if st.MediaURL == "" {
		st.fail(KindInternal, fmt.Errorf("transcribe stage entered without a media url"))
		return
	}
	if !st.advance(StatusTranscribing) {
		return
	}

	transcript, err := p.transcriber.Transcribe(ctx, st.MediaURL, st.Options.ExpectedSpeakers)
	if err != nil {
		st.fail(classify(err), err)
		return
	}
	st.Transcript = &transcript

	times := stats.AggregateSpeakingTime(transcript.Utterances)
	st.SpeakerPercentages = stats.ComputePercentages(times, stats.TotalSpeakingSeconds(times))

	if transcript.Empty() {
		st.warn(KindEmptyTranscript, "no utterances detected in audio")
	}
}

// analyze feeds the transcript and context to the LLM and reconciles every
// speaker-facing field to display names. An empty transcript short-circuits
// to a degenerate no-content result without calling the model.
func (p *Pipeline) analyze(ctx context.Context, st *State) {
	if st.Failed() {
		return
	}
	if st.Transcript == nil {
		st.fail(KindInternal, fmt.Errorf("analyze stage entered without a transcript"))
		return
	}
	if !st.advance(StatusAnalyzing) {
		return
	}

	if st.Transcript.Empty() {
		st.Analysis = noContentResult(st.Options.QAPairs)
		st.SpeakerTimes = map[string]meeting.SpeakerTimeInfo{}
		return
	}

	result, err := p.analyzer.Analyze(ctx, analysis.Input{
		Utterances:         st.Transcript.Utterances,
		SpeakerPercentages: st.SpeakerPercentages,
		Participants:       st.Options.Participants,
		Questions:          questions(st.Options.QAPairs),
		MeetingDatetime:    st.Options.MeetingDatetime,
	})
	if err != nil {
		st.fail(classify(err), err)
		return
	}
	if result == nil {
		st.fail(KindAnalysisSchema, fmt.Errorf("analyzer returned no result"))
		return
	}

	// Same mapping function the formatter used, so "A" and "Alice" never
	// both surface for one person.
	times := stats.AggregateSpeakingTime(st.Transcript.Utterances)
	mapping := stats.MapSpeakersToNames(labelsOf(times), st.Options.Participants)
	st.SpeakerTimes = stats.ComputeTimeInfo(times, mapping, stats.TotalSpeakingSeconds(times))
	result.SpeakerTimes = st.SpeakerTimes
	st.Analysis = result
}

// generateTitle is the fast path: a title from context alone, with the
// retrieval and transcription stages never entered.
func (p *Pipeline) generateTitle(ctx context.Context, st *State) {
	if st.Failed() || !st.advance(StatusGeneratingTitle) {
		return
	}

	title, err := p.analyzer.GenerateTitle(ctx, analysis.TitleInput{
		Participants:    st.Options.Participants,
		Questions:       questions(st.Options.QAPairs),
		MeetingDatetime: st.Options.MeetingDatetime,
	})
	if err != nil {
		st.fail(classify(err), err)
		return
	}
	st.Analysis = &meeting.AnalysisResult{Title: title, QAPairs: st.Options.QAPairs}
}

func noContentResult(qa []meeting.QAPair) *meeting.AnalysisResult {
	echoed := make([]meeting.QAPair, len(qa))
	for i, pair := range qa {
		echoed[i] = meeting.QAPair{Question: pair.Question}
	}
	return &meeting.AnalysisResult{
		Title:   "No speech detected",
		QAPairs: echoed,
	}
}

func questions(qa []meeting.QAPair) []string {
	out := make([]string, 0, len(qa))
	for _, pair := range qa {
		if pair.Question != "" {
			out = append(out, pair.Question)
		}
	}
	return out
}

func labelsOf(times map[string]int64) []string {
	labels := make([]string, 0, len(times))
	for label := range times {
		labels = append(labels, label)
	}
	return labels
}
