package ai

import "context"

// Attachment carries binary proof data sent alongside a prompt.
type Attachment struct {
	Data []byte
	MIME string
}

// GenerateRequest describes a single model invocation.
type GenerateRequest struct {
	Prompt     string
	Attachment *Attachment
}

// Generator describes an AI model capable of producing free-form text for a prompt.
// Implementations may fail at any time; callers must treat failures as normal
// error results rather than propagate them.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
