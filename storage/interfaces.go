package storage

import (
	"context"

	"kayak-destinations/models"
)

// ArtifactUploader pushes local artifacts to an object store. It returns
// the number of files that could not be uploaded.
type ArtifactUploader interface {
	UploadAll(ctx context.Context, paths []string) int
}

// TableLoader replaces the relational copy of the output tables
type TableLoader interface {
	ReplaceTables(ctx context.Context, destinations []*models.DestinationSummary, hotels []*models.HotelListing) error
	Close() error
}

var (
	_ ArtifactUploader = (*S3Uploader)(nil)
	_ TableLoader      = (*PostgresWriter)(nil)
)
