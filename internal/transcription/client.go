// Package transcription wraps the speech-to-text provider: submit one audio
// URL, poll until the job reaches a terminal state, return diarized
// utterances. Timeout and provider failure are distinct error kinds so
// alerting can tell them apart.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/meeting"
)

var (
	// ErrProvider marks a job-level failure reported by the provider.
	ErrProvider = errors.New("transcription provider error")
	// ErrTimeout marks the polling ceiling being exceeded before any
	// terminal provider state was seen.
	ErrTimeout = errors.New("transcription polling timed out")
)

const (
	minSpeakers = 2
	maxSpeakers = 10
)

// Transcriber is the contract the pipeline consumes.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string, expectedSpeakers int) (meeting.Transcript, error)
}

// Client talks to the provider's HTTP API.
type Client struct {
	baseURL      string
	apiKey       string
	language     string
	pollInterval time.Duration
	pollCeiling  time.Duration
	httpClient   *http.Client
	log          *logger.Logger
}

// NewClient builds a provider client. Zero interval/ceiling fall back to
// 5s / 900s.
func NewClient(baseURL, apiKey string, pollInterval, pollCeiling time.Duration, log *logger.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if pollCeiling <= 0 {
		pollCeiling = 900 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		language:     "en",
		pollInterval: pollInterval,
		pollCeiling:  pollCeiling,
		httpClient:   &http.Client{Timeout: 12 * time.Second},
		log:          log,
	}
}

type submitRequest struct {
	AudioURL         string `json:"audio_url"`
	LanguageCode     string `json:"language_code,omitempty"`
	SpeakerLabels    bool   `json:"speaker_labels"`
	SpeakersExpected int    `json:"speakers_expected"`
}

// SetLanguage overrides the language hint sent with each job.
func (c *Client) SetLanguage(code string) {
	if code != "" {
		c.language = code
	}
}

type jobUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

type jobResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"` // queued | processing | completed | error
	Utterances    []jobUtterance `json:"utterances"`
	AudioDuration float64        `json:"audio_duration"`
	Error         string         `json:"error"`
}

// Transcribe submits the audio and polls until completion. A completed job
// with zero utterances is a success: silence is not an error.
func (c *Client) Transcribe(ctx context.Context, audioURL string, expectedSpeakers int) (meeting.Transcript, error) {
	log := c.log.WithComponent("transcription").WithField("audio_url", audioURL)

	jobID, err := c.submit(ctx, audioURL, clampSpeakers(expectedSpeakers))
	if err != nil {
		return meeting.Transcript{}, err
	}
	log = log.WithField("job_id", jobID)
	log.Info("transcription job submitted")

	deadline := time.Now().Add(c.pollCeiling)
	for {
		if time.Now().After(deadline) {
			return meeting.Transcript{}, fmt.Errorf("%w after %s (job %s)", ErrTimeout, c.pollCeiling, jobID)
		}
		select {
		case <-ctx.Done():
			return meeting.Transcript{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		job, err := c.poll(ctx, jobID)
		if err != nil {
			// A provider rejection (job expired, deleted) will never
			// resolve; spinning until the ceiling would misreport it
			// as a timeout.
			if errors.Is(err, ErrProvider) {
				return meeting.Transcript{}, err
			}
			log.WithError(err).Warn("poll attempt failed")
			continue
		}
		log.WithField("status", job.Status).Debug("polled transcription job")

		switch job.Status {
		case "completed":
			return buildTranscript(job), nil
		case "error":
			return meeting.Transcript{}, fmt.Errorf("%w: %s", ErrProvider, job.Error)
		case "queued", "processing":
			// keep polling
		default:
			log.WithField("status", job.Status).Warn("unknown provider status")
		}
	}
}

func clampSpeakers(n int) int {
	if n < minSpeakers {
		return minSpeakers
	}
	if n > maxSpeakers {
		return maxSpeakers
	}
	return n
}

func buildTranscript(job *jobResponse) meeting.Transcript {
	utterances := make([]meeting.Utterance, 0, len(job.Utterances))
	for _, u := range job.Utterances {
		utterances = append(utterances, meeting.Utterance{
			Speaker: u.Speaker,
			Text:    u.Text,
			StartMs: u.Start,
			EndMs:   u.End,
		})
	}
	return meeting.Transcript{Utterances: utterances, DurationSeconds: job.AudioDuration}
}

func (c *Client) submit(ctx context.Context, audioURL string, speakers int) (string, error) {
	payload, _ := json.Marshal(submitRequest{
		AudioURL:         audioURL,
		LanguageCode:     c.language,
		SpeakerLabels:    true,
		SpeakersExpected: speakers,
	})

	var job jobResponse
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v2/transcript", payload, &job)
	if err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("%w: submit returned no job id", ErrProvider)
	}
	return job.ID, nil
}

func (c *Client) poll(ctx context.Context, jobID string) (*jobResponse, error) {
	var job jobResponse
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// doJSON performs one provider call with exponential backoff on transport
// and 5xx failures. 4xx responses are permanent.
func (c *Client) doJSON(ctx context.Context, method, url string, payload []byte, target any) error {
	op := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("provider server error: %s", string(raw))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrProvider, string(raw)))
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("provider response decode: %v body=%s", err, string(raw))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 12 * time.Second
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
