package db

import "context"

// Store is the index facade combining all sub-interfaces.
type Store interface {
	Pinger
	Selector
	SchemaReader
}

// Pinger checks index connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Selector runs select requests against a core.
type Selector interface {
	Select(ctx context.Context, core string, q Query) (*SelectResponse, error)
}

// SchemaReader lists the fields a core knows about.
type SchemaReader interface {
	Fields(ctx context.Context, core string) ([]string, error)
}
