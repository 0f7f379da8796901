package transcribe

import "context"

// Transcriber is the speech-to-text capability: audio bytes plus a content
// type and filename hint in, best-effort transcript text out. An empty
// transcript is a valid adapter result; the pipeline decides what to do
// with it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, filenameHint string) (string, error)
}
