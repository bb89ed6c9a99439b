package mockengine

import (
	"context"
	"io"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/extractor"
)

// ReleaseNotesFetcher downloads the release notes of a found update.
type ReleaseNotesFetcher interface {
	Fetch(ctx context.Context, url string) (engine.DownloadData, error)
}

// Extractor unpacks a received update archive.
type Extractor interface {
	Extract(ctx context.Context, archive io.Reader, destPath string, options ...extractor.ExtractOption) error
}
