// Package analysis wraps the LLM gateway behind a structured-output
// contract: prompts go out from a fixed template, responses come back as
// schema-validated AnalysisResult values or errors, never partial objects.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/meeting"
	"meeting-insights-go/internal/stats"
)

// ErrSchema marks a model response that was null, unparsable, or failed
// AnalysisResult validation.
var ErrSchema = errors.New("analysis response failed schema validation")

// Input carries everything the full analysis needs. Utterance timing is
// deliberately absent from the prompt; only speaker and text reach the model.
type Input struct {
	Utterances         []meeting.Utterance
	SpeakerPercentages map[string]float64 // raw label -> percentage
	Participants       map[string]meeting.Participant
	Questions          []string
	MeetingDatetime    string
}

// TitleInput is the reduced fast-path input: no transcript required.
type TitleInput struct {
	Participants    map[string]meeting.Participant
	Questions       []string
	MeetingDatetime string
}

// Analyzer is the contract the pipeline consumes.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (*meeting.AnalysisResult, error)
	GenerateTitle(ctx context.Context, in TitleInput) (string, error)
}

// Client talks to an OpenAI-compatible chat-completions gateway.
type Client struct {
	gatewayURL string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient builds an LLM gateway client.
func NewClient(gatewayURL, apiKey, model string, log *logger.Logger) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

// Analyze renders the full analysis prompt, invokes the model, and returns
// a validated result. Any null or malformed response is an ErrSchema failure,
// never a silently substituted default.
func (c *Client) Analyze(ctx context.Context, in Input) (*meeting.AnalysisResult, error) {
	log := c.log.WithComponent("analysis")

	labels := make([]string, 0, len(in.SpeakerPercentages))
	for label := range in.SpeakerPercentages {
		labels = append(labels, label)
	}
	mapping := stats.MapSpeakersToNames(labels, in.Participants)

	namedPct := make(map[string]float64, len(in.SpeakerPercentages))
	for label, pct := range in.SpeakerPercentages {
		namedPct[mapping[label]] = pct
	}

	prompt, err := renderPrompt(analysisPrompt, promptVars{
		Transcript:      stats.FormatDialogue(in.Utterances, mapping),
		SpeakerStats:    renderSpeakerStats(namedPct),
		Participants:    renderParticipants(mapping, in.Participants),
		QAPairs:         renderQuestions(in.Questions),
		MeetingDatetime: orUnknown(in.MeetingDatetime),
	})
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in model output", ErrSchema)
	}
	var result meeting.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	log.WithField("title", result.Title).Info("analysis result validated")
	return &result, nil
}

// GenerateTitle is the reduced fast path: a short title from context alone,
// reachable without any retrieval or transcription having run.
func (c *Client) GenerateTitle(ctx context.Context, in TitleInput) (string, error) {
	labels := make([]string, 0, len(in.Participants))
	for label := range in.Participants {
		labels = append(labels, label)
	}
	mapping := stats.MapSpeakersToNames(labels, in.Participants)

	prompt, err := renderPrompt(titlePrompt, promptVars{
		Participants:    renderParticipants(mapping, in.Participants),
		QAPairs:         renderQuestions(in.Questions),
		MeetingDatetime: orUnknown(in.MeetingDatetime),
	})
	if err != nil {
		return "", err
	}

	content, err := c.complete(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(content), `"`)
	if title == "" {
		return "", fmt.Errorf("%w: model returned empty title", ErrSchema)
	}
	return title, nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete performs one chat-completions round trip with backoff on
// transport and 5xx failures. 4xx is permanent.
func (c *Client) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	}
	if jsonMode {
		reqBody.ResponseFormat = &chatFormat{Type: "json_object"}
	}
	payload, _ := json.Marshal(reqBody)

	var content string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("llm server error: %s", string(raw))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("llm request rejected: %s", string(raw)))
		}

		var parsed chatResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("llm response decode: %v body=%s", err, string(raw))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: response has no choices", ErrSchema))
		}
		content = parsed.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 45 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// extractJSON returns the first balanced JSON object in s, stripping
// markdown fences first. Empty string means none was found.
func extractJSON(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, fence := range []string{"```json", "```", "`"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
