package session

import (
	"context"
	"fmt"
)

// Store is a per-key session store with optimistic concurrency.
//
// Save creates the session when its Version is 0 and otherwise replaces it
// only if the stored version still equals Version. Either way a successful
// Save increments Version in place. A lost race returns ErrConflict.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string // sqlite, dynamodb or file
	Path    string // sqlite database or JSON document path
	Table   string // DynamoDB table
	Dynamo  DynamoAPI
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		return OpenSQLite(ctx, opts.Path)
	case "file":
		return OpenFile(opts.Path)
	case "dynamodb":
		if opts.Dynamo == nil || opts.Table == "" {
			return nil, fmt.Errorf("dynamodb store requires a client and a table name")
		}
		return NewDynamoStore(opts.Dynamo, opts.Table), nil
	default:
		return nil, fmt.Errorf("unknown session store %q: choose sqlite, dynamodb, or file", opts.Backend)
	}
}
