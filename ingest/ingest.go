// Package ingest runs the document ingestion pipeline: extract text, split
// it into chunks, embed the chunks, and append the result to a workspace.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aggroso/knowspace/chunk"
	"github.com/aggroso/knowspace/embedding"
	"github.com/aggroso/knowspace/extract"
	"github.com/aggroso/knowspace/metadata"
	"github.com/aggroso/knowspace/store"
)

var (
	// ErrEmptyDocument is returned when a document contains no extractable
	// text.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrNoChunks is returned when chunking produced nothing to embed.
	ErrNoChunks = errors.New("document produced no chunks")
)

// Options contains configuration options for the pipeline.
type Options struct {
	// Chunk configures the text splitter.
	Chunk chunk.Options

	// ChunkCap bounds chunks kept per document. Zero means unbounded;
	// overflow is dropped silently from the tail.
	ChunkCap int

	// NewDocID mints document ids. Defaults to random UUIDs.
	NewDocID func() string

	// Logger receives operational events.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Chunk: chunk.DefaultOptions,
	NewDocID: func() string {
		return uuid.NewString()
	},
}

// Receipt summarizes one completed ingestion.
type Receipt struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// Pipeline ingests documents into workspaces.
type Pipeline struct {
	manager  *store.Manager
	embedder *embedding.Gateway
	splitter *chunk.Splitter
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(manager *store.Manager, embedder *embedding.Gateway, optFns ...func(o *Options)) (*Pipeline, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	splitter, err := chunk.NewSplitter(func(o *chunk.Options) {
		*o = opts.Chunk
	})
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		manager:  manager,
		embedder: embedder,
		splitter: splitter,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Ingest extracts text from a raw document payload and ingests it into the
// workspace identified by key.
func (p *Pipeline) Ingest(ctx context.Context, key, filename string, data []byte) (*Receipt, error) {
	text, err := extract.Text(filename, data)
	if err != nil {
		return nil, err
	}
	return p.IngestText(ctx, key, filename, text)
}

// IngestText ingests already-extracted text into the workspace identified by
// key. Nothing is written until chunking and embedding both succeed.
func (p *Pipeline) IngestText(ctx context.Context, key, filename, text string) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", filename, ErrEmptyDocument)
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoChunks)
	}
	if p.opts.ChunkCap > 0 && len(chunks) > p.opts.ChunkCap {
		p.logger.Warn("chunk cap exceeded, dropping tail",
			"filename", filename,
			"chunks", len(chunks),
			"cap", p.opts.ChunkCap,
		)
		chunks = chunks[:p.opts.ChunkCap]
	}

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", filename, err)
	}

	docID := p.opts.NewDocID()
	entries := make(metadata.List, len(chunks))
	for i, c := range chunks {
		entries[i] = metadata.Entry{
			Document: filename,
			Text:     c,
			DocID:    docID,
		}
	}

	if err := p.manager.Workspace(key).Append(ctx, vectors, entries); err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	p.logger.Info("document ingested",
		"workspace", key,
		"filename", filename,
		"doc_id", docID,
		"chunks", len(chunks),
	)

	return &Receipt{
		DocID:      docID,
		Filename:   filename,
		ChunkCount: len(chunks),
	}, nil
}
