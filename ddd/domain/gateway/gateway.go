package gateway

import "context"

// EventPublisher emits asset lifecycle events for downstream collaborators.
// Implementations must be safe to call concurrently; publishing is
// best-effort and never blocks the pipeline outcome.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, assetID string, payload interface{})
}

// SourceArchiver stores the uploaded source object before its temp file is
// removed.
type SourceArchiver interface {
	ArchiveSource(ctx context.Context, localPath, assetID string) (objectKey string, err error)
}
