package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/internal/common"
)

// Config for the speech-to-text client.
type Config struct {
	APIKey  string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL string        // default https://api.openai.com/v1
	Model   string        // e.g. "whisper-1"
	Timeout time.Duration // http client timeout
}

// Client calls an OpenAI-style /audio/transcriptions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Transcribe implements Transcriber via a multipart upload.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType, filenameHint string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("stt.transcribe.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"bytes", len(audio),
		"mime_type", mimeType,
		"filename", filenameHint,
	)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filenameHint == "" {
		filenameHint = "audio"
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filenameHint))
	hdr.Set("Content-Type", mimeType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return "", common.Tag(common.ErrTranscription, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", common.Tag(common.ErrTranscription, err)
	}
	if err := w.WriteField("model", c.cfg.Model); err != nil {
		return "", common.Tag(common.ErrTranscription, err)
	}
	if err := w.WriteField("response_format", "json"); err != nil {
		return "", common.Tag(common.ErrTranscription, err)
	}
	if err := w.Close(); err != nil {
		return "", common.Tag(common.ErrTranscription, err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", common.Tag(common.ErrTranscription, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("stt.transcribe.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.Tag(common.ErrTranscription, err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("stt.transcribe.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("stt.transcribe.status_error",
			"req_id", rid, "status", resp.StatusCode, "body", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.Tagf(common.ErrTranscription, "stt status %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Error("stt.transcribe.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", common.Tag(common.ErrTranscription, fmt.Errorf("decode stt response: %w", err))
	}

	c.log.Info("stt.transcribe.ok",
		"req_id", rid,
		"text_len", len(out.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Text, nil
}
