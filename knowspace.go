package knowspace

import (
	"context"
	"fmt"

	"github.com/aggroso/knowspace/blobstore"
	"github.com/aggroso/knowspace/embedding"
	"github.com/aggroso/knowspace/ingest"
	"github.com/aggroso/knowspace/metadata"
	"github.com/aggroso/knowspace/retrieval"
	"github.com/aggroso/knowspace/store"
)

// DefaultWorkspace is the key used when a caller supplies none.
const DefaultWorkspace = store.DefaultWorkspace

// Knowspace is a per-workspace knowledge store: documents go in through the
// ingestion pipeline, queries come back out through the retrieval engine,
// and every workspace keeps its own isolated index.
//
// All methods are safe for concurrent use.
type Knowspace struct {
	manager  *store.Manager
	embedder *embedding.Gateway
	pipeline *ingest.Pipeline
	engine   *retrieval.Engine
	logger   *Logger
}

// New creates a Knowspace instance around an embedding model factory.
// The model itself is not constructed until the first embedding call.
func New(factory embedding.ModelFactory, optFns ...func(o *Options)) (*Knowspace, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(nil)
	}

	storage := opts.Storage
	if storage == nil {
		storage = blobstore.NewMemoryStore()
	}

	embedder, err := embedding.NewGateway(factory, func(o *embedding.Options) {
		o.BatchSize = opts.BatchSize
		o.Concurrency = opts.EmbedConcurrency
		o.RateLimit = opts.EmbedRateLimit
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding gateway: %w", err)
	}

	manager, err := store.NewManager(storage, func(o *store.Options) {
		o.Dimension = opts.Dimension
		o.Codec = opts.Codec
		o.Compression = opts.Compression
		o.PreferRecompute = opts.RebuildByRecompute
		o.Reembed = embedder.Embed
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	pipeline, err := ingest.NewPipeline(manager, embedder, func(o *ingest.Options) {
		o.Chunk = opts.Chunk
		o.ChunkCap = opts.ChunkCap
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("create ingestion pipeline: %w", err)
	}

	engine, err := retrieval.NewEngine(manager, embedder, func(o *retrieval.Options) {
		o.TopK = opts.TopK
		o.Generator = opts.Generator
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("create retrieval engine: %w", err)
	}

	return &Knowspace{
		manager:  manager,
		embedder: embedder,
		pipeline: pipeline,
		engine:   engine,
		logger:   logger,
	}, nil
}

// Ingest extracts, chunks, embeds, and stores a document payload in the
// given workspace. Supported payloads are .txt, .md, and .pdf files.
func (ks *Knowspace) Ingest(ctx context.Context, workspace, filename string, data []byte) (*ingest.Receipt, error) {
	receipt, err := ks.pipeline.Ingest(ctx, workspace, filename, data)
	ks.logger.LogIngest(ctx, workspace, filename, chunkCount(receipt), err)
	if err != nil {
		return nil, translateError(err)
	}
	return receipt, nil
}

// IngestText ingests already-extracted text in the given workspace.
func (ks *Knowspace) IngestText(ctx context.Context, workspace, filename, text string) (*ingest.Receipt, error) {
	receipt, err := ks.pipeline.IngestText(ctx, workspace, filename, text)
	ks.logger.LogIngest(ctx, workspace, filename, chunkCount(receipt), err)
	if err != nil {
		return nil, translateError(err)
	}
	return receipt, nil
}

// Retrieve returns the chunks nearest to query in the given workspace,
// closest first. An empty workspace yields an empty result, not an error.
func (ks *Knowspace) Retrieve(ctx context.Context, workspace, query string) ([]retrieval.Result, error) {
	results, err := ks.engine.Retrieve(ctx, workspace, query)
	ks.logger.LogQuery(ctx, workspace, len(results), err)
	if err != nil {
		return nil, translateError(err)
	}
	return results, nil
}

// Ask retrieves context for query in the given workspace and generates a
// grounded answer. With nothing retrieved, the answer short-circuits to
// retrieval.NoContextAnswer without calling the generator.
func (ks *Knowspace) Ask(ctx context.Context, workspace, query string) (*retrieval.Answer, error) {
	answer, err := ks.engine.Ask(ctx, workspace, query)
	if err != nil {
		ks.logger.LogQuery(ctx, workspace, 0, err)
		return nil, translateError(err)
	}
	ks.logger.LogQuery(ctx, workspace, len(answer.Sources), nil)
	return answer, nil
}

// Documents lists the documents of a workspace in upload order.
func (ks *Knowspace) Documents(ctx context.Context, workspace string) ([]metadata.DocumentInfo, error) {
	docs, err := ks.manager.Workspace(workspace).Documents(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return docs, nil
}

// Remove deletes a document and all its chunks from a workspace.
// It returns false when the document is not present.
func (ks *Knowspace) Remove(ctx context.Context, workspace, docID string) (bool, error) {
	removed, err := ks.manager.Workspace(workspace).Remove(ctx, docID)
	ks.logger.LogRemove(ctx, workspace, docID, removed, err)
	if err != nil {
		return false, translateError(err)
	}
	return removed, nil
}

// Count returns the number of indexed chunks in a workspace.
func (ks *Knowspace) Count(ctx context.Context, workspace string) (int, error) {
	n, err := ks.manager.Workspace(workspace).Count(ctx)
	if err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

// ResetModel tears down the shared embedding model. The next embedding
// call constructs a fresh one.
func (ks *Knowspace) ResetModel() error {
	return ks.embedder.Reset()
}

// Close releases the embedding model. The instance must not be used after
// Close.
func (ks *Knowspace) Close() error {
	return ks.embedder.Reset()
}

// Status reports instance health: whether the embedding model is reachable
// and what dimensionality it produces.
type Status struct {
	ModelReady bool   `json:"model_ready"`
	Dimension  int    `json:"dimension"`
	ModelError string `json:"model_error,omitempty"`
}

// Status probes the embedding model, constructing it if needed.
func (ks *Knowspace) Status(ctx context.Context) Status {
	dim, err := ks.embedder.Dimension(ctx)
	if err != nil {
		return Status{ModelReady: false, ModelError: err.Error()}
	}
	return Status{ModelReady: true, Dimension: dim}
}

func chunkCount(r *ingest.Receipt) int {
	if r == nil {
		return 0
	}
	return r.ChunkCount
}
