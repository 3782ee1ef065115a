package analysis

import "context"

// Client port for the external multimodal model.
// Ready reports whether the access credential is configured; Analyze sends
// the prompt plus image and returns the model's raw text reply.
type Client interface {
	Ready() error
	Analyze(ctx context.Context, prompt string, image []byte, mime string) (string, error)
}

// Repository port for persisting analysis records
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Paginate(ctx context.Context, userID string, page, pageSize int) ([]*Record, error)
}

// ArtifactStore port for archiving analyzed images
type ArtifactStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
