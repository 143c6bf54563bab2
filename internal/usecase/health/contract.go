package health

import "context"

// IndexPinger checks index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// RootChecker checks that an archive root directory is readable.
type RootChecker interface {
	CheckRoot(ctx context.Context, root string) error
}
