package ports

import (
	"context"

	"schoolinfra/domain/infra"
)

// DatasetReader loads an infrastructure table from a file.
// Implementations pick the format from the file extension.
type DatasetReader interface {
	ReadTable(ctx context.Context, path string) (*infra.Table, error)
}

// TableWriter persists a table, keeping the header order it carries
type TableWriter interface {
	WriteTable(ctx context.Context, path string, table *infra.Table) error
}
