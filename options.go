package knowspace

import (
	"golang.org/x/time/rate"

	"github.com/aggroso/knowspace/blobstore"
	"github.com/aggroso/knowspace/chunk"
	"github.com/aggroso/knowspace/codec"
	"github.com/aggroso/knowspace/retrieval"
	"github.com/aggroso/knowspace/store"
)

// Options contains configuration options for a Knowspace instance.
type Options struct {
	// Storage holds every workspace's artifact pair. Defaults to an
	// in-memory store, which does not survive process restarts.
	Storage blobstore.Store

	// Dimension is the embedding dimensionality shared by all workspaces.
	// It must match the model's output size.
	Dimension int

	// Codec encodes the metadata artifact. Defaults to codec.Default.
	Codec codec.Codec

	// Compression enables zstd compression of index artifacts.
	Compression bool

	// RebuildByRecompute forces deletions to re-embed retained chunks
	// instead of reading their vectors back from the old index.
	RebuildByRecompute bool

	// Chunk configures the document splitter.
	Chunk chunk.Options

	// ChunkCap bounds chunks kept per document. Zero means unbounded.
	ChunkCap int

	// BatchSize bounds texts per embedding model call.
	BatchSize int

	// EmbedConcurrency bounds concurrent embedding model calls.
	EmbedConcurrency int

	// EmbedRateLimit caps embedding model calls per second. Zero means
	// unlimited.
	EmbedRateLimit rate.Limit

	// TopK is the number of chunks retrieved per query.
	TopK int

	// Generator produces grounded answers for Ask. Without one, Ask
	// returns retrievals with an empty answer text.
	Generator retrieval.Generator

	// Logger receives operational events.
	Logger *Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Dimension:        store.DefaultDimension,
	Chunk:            chunk.DefaultOptions,
	BatchSize:        32,
	EmbedConcurrency: 4,
	TopK:             retrieval.DefaultTopK,
}

// WithStorage sets the blob store holding workspace artifacts.
func WithStorage(s blobstore.Store) func(o *Options) {
	return func(o *Options) {
		o.Storage = s
	}
}

// WithLocalStorage stores workspace artifacts under the given directory.
func WithLocalStorage(root string) func(o *Options) {
	return func(o *Options) {
		o.Storage = blobstore.NewLocalStore(root)
	}
}

// WithDimension sets the embedding dimensionality.
func WithDimension(dim int) func(o *Options) {
	return func(o *Options) {
		o.Dimension = dim
	}
}

// WithGenerator sets the answer generator used by Ask.
func WithGenerator(g retrieval.Generator) func(o *Options) {
	return func(o *Options) {
		o.Generator = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = l
	}
}
