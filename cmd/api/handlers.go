package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"meeting-insights-go/internal/directory"
	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/meeting"
	"meeting-insights-go/internal/pipeline"
)

// analysisRunner is what the handler needs from the pipeline.
type analysisRunner interface {
	Run(ctx context.Context, sourceRef string, opts pipeline.Options) *pipeline.State
}

type server struct {
	pipe   analysisRunner
	roster directory.Directory
	log    *logger.Logger
}

// analyzeRequest is the wire shape of POST /v1/analyze.
type analyzeRequest struct {
	SourceRef        string                         `json:"source_ref"`
	BucketName       string                         `json:"bucket_name,omitempty"`
	SourceKind       string                         `json:"source_kind,omitempty"`
	QAPairs          []meeting.QAPair               `json:"qa_pairs,omitempty"`
	ParticipantsInfo map[string]meeting.Participant `json:"participants_info,omitempty"`
	// ParticipantIDs maps speaker labels to directory member IDs; entries
	// resolve through the roster and merge into participants_info.
	ParticipantIDs   map[string]string `json:"participant_ids,omitempty"`
	MeetingDatetime  string            `json:"meeting_datetime,omitempty"`
	OnlyTitle        bool              `json:"only_title,omitempty"`
	ExpectedSpeakers int               `json:"expected_speakers,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "analyze")

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceRef == "" && !req.OnlyTitle {
		http.Error(w, "missing source_ref", http.StatusBadRequest)
		return
	}
	reqLog = reqLog.WithField("source_ref", req.SourceRef).WithField("only_title", req.OnlyTitle)
	reqLog.Info("analyze request received")

	participants := req.ParticipantsInfo
	if len(req.ParticipantIDs) > 0 && s.roster != nil {
		participants = s.enrichParticipants(participants, req.ParticipantIDs)
	}

	st := s.pipe.Run(r.Context(), req.SourceRef, pipeline.Options{
		BucketName:       req.BucketName,
		SourceKind:       pipeline.SourceKind(req.SourceKind),
		QAPairs:          req.QAPairs,
		Participants:     participants,
		MeetingDatetime:  req.MeetingDatetime,
		OnlyTitle:        req.OnlyTitle,
		ExpectedSpeakers: req.ExpectedSpeakers,
	})

	w.Header().Set("Content-Type", "application/json")
	if st.Status == pipeline.StatusFailed {
		reqLog.WithField("errors", st.Errors).Warn("pipeline run failed")
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		reqLog.WithError(err).Error("failed to write response")
	}
}

// enrichParticipants resolves label->memberID pairs through the roster.
// An explicit participants_info entry for the same label wins.
func (s *server) enrichParticipants(base map[string]meeting.Participant, ids map[string]string) map[string]meeting.Participant {
	out := make(map[string]meeting.Participant, len(base)+len(ids))
	for label, id := range ids {
		if rec, ok := s.roster.Lookup(id); ok {
			out[label] = meeting.Participant{Name: rec.Name, Role: rec.Role}
		}
	}
	for label, p := range base {
		out[label] = p
	}
	return out
}
