package speechfilter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
)

// Transcriber converts a WAV clip into text. An empty transcript means no
// recognizable speech.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

// WhisperTranscriber talks to a running whisper-server binary, which exposes
// a batch transcription API at POST /inference.
type WhisperTranscriber struct {
	serverURL string
	language  string
	timeout   time.Duration
	http      *httpclient.Client
}

// NewWhisperTranscriber creates a transcriber against the given
// whisper-server base URL.
func NewWhisperTranscriber(serverURL, language string, hc *httpclient.Client) (*WhisperTranscriber, error) {
	if serverURL == "" {
		return nil, errors.Newf("whisper server URL must not be empty").
			Category(errors.CategoryConfiguration).
			Component("speechfilter").
			Build()
	}
	timeout := 60 * time.Second
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: timeout})
	}
	return &WhisperTranscriber{
		serverURL: serverURL,
		language:  language,
		timeout:   timeout,
		http:      hc,
	}, nil
}

// Transcribe POSTs the WAV data to /inference as multipart/form-data and
// returns the transcribed text.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "segment.wav")
	if err != nil {
		return "", errors.Newf("failed to create form file: %w", err).
			Category(errors.CategoryTranscribe).
			Component("speechfilter").
			Build()
	}
	if _, err := fw.Write(wavData); err != nil {
		return "", errors.Newf("failed to write wav data: %w", err).
			Category(errors.CategoryTranscribe).
			Component("speechfilter").
			Build()
	}
	if w.language != "" {
		if err := mw.WriteField("language", w.language); err != nil {
			return "", errors.Newf("failed to write language field: %w", err).
				Category(errors.CategoryTranscribe).
				Component("speechfilter").
				Build()
		}
	}
	if err := mw.Close(); err != nil {
		return "", errors.Newf("failed to close multipart writer: %w", err).
			Category(errors.CategoryTranscribe).
			Component("speechfilter").
			Build()
	}

	endpoint := w.serverURL + "/inference"
	reqCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", errors.Newf("failed to create request: %w", err).
			Category(errors.CategoryTranscribe).
			Component("speechfilter").
			Build()
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.http.Do(reqCtx, req)
	if err != nil {
		return "", errors.Newf("whisper request failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("speechfilter").
			NetworkContext(endpoint, w.timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("whisper server returned HTTP %d", resp.StatusCode).
			Category(errors.CategoryTranscribe).
			Component("speechfilter").
			Context("status_code", resp.StatusCode).
			Build()
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Newf("failed to read whisper response: %w", err).
			Category(errors.CategoryNetwork).
			Component("speechfilter").
			Build()
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", errors.Newf("failed to parse whisper response: %w", err).
			Category(errors.CategoryMalformed).
			Component("speechfilter").
			Build()
	}

	return result.Text, nil
}
