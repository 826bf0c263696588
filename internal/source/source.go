// Package source provides the input adapters feeding the sync pipeline. Each
// adapter fetches raw records from one origin (discovery API, file, vector
// store, YouTube) and tags them with its source name.
package source

import (
	"context"

	"github.com/trychroma/gtm-cli/internal/model"
)

// Source fetches raw records for the pipeline.
type Source interface {
	// Name identifies the adapter in logs and record provenance.
	Name() string
	// Fetch returns all records from the origin. Adapters load eagerly; the
	// pipeline itself paces the downstream writes.
	Fetch(ctx context.Context) ([]model.RawRecord, error)
}
