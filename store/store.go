// Package store owns the paired (index, metadata) state of each workspace.
//
// The pair only ever moves together: every mutating operation appends or
// rebuilds both sides under one lock and persists both artifacts before
// returning. No caller can mutate one side without the other, which is what
// keeps metadata[i] describing exactly index row i at all times.
package store

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/aggroso/knowspace/blobstore"
	"github.com/aggroso/knowspace/codec"
	"github.com/aggroso/knowspace/metadata"
)

// DefaultDimension is the embedding dimensionality of the default model.
const DefaultDimension = 384

// Artifact names under a workspace prefix.
const (
	IndexArtifact    = "index.ksi"
	MetadataArtifact = "metadata.json"
)

var (
	// ErrLengthMismatch is returned when vectors and metadata entries are
	// appended with different lengths.
	ErrLengthMismatch = errors.New("vectors and metadata must have equal length")

	// ErrInconsistentPair is returned when the loaded index and metadata
	// disagree on row count and no re-embedder is available to rebuild.
	ErrInconsistentPair = errors.New("index row count does not match metadata length")

	// ErrNoReembedder is returned when a recompute rebuild is requested but
	// no re-embedder is configured.
	ErrNoReembedder = errors.New("no re-embedder configured")
)

// ReembedFunc recomputes embedding vectors for the given chunk texts.
// It is used for the recompute rebuild path after deletions.
type ReembedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Options contains configuration options for workspace stores.
type Options struct {
	// Dimension is the fixed vector dimensionality (embedding model output
	// size). All workspaces share it.
	Dimension int

	// Codec encodes the metadata artifact. Defaults to codec.Default.
	Codec codec.Codec

	// Compression enables zstd compression of the index artifact payload.
	Compression bool

	// Reembed, when set, enables the recompute rebuild path: retained chunk
	// texts are re-embedded instead of read back from the old index.
	Reembed ReembedFunc

	// PreferRecompute forces the recompute path for every rebuild when a
	// re-embedder is configured. The default is the cheaper reconstruct
	// path guarded by an explicit row-count consistency check.
	PreferRecompute bool

	// Logger receives operational events. Defaults to a text logger on
	// stderr at info level.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Dimension: DefaultDimension,
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func (o *Options) codec() codec.Codec {
	if o.Codec != nil {
		return o.Codec
	}
	return codec.Default
}

// Hit is a single search result: the matched entry annotated with its raw
// distance and index row.
type Hit struct {
	Entry    metadata.Entry
	Row      uint32
	Distance float32
}

// isNotFound reports whether err means an absent artifact, which is the
// expected first-use state of a workspace.
func isNotFound(err error) bool {
	return errors.Is(err, blobstore.ErrNotFound)
}
