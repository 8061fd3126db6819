package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aggroso/knowspace/blobstore"
	"github.com/aggroso/knowspace/codec"
	"github.com/aggroso/knowspace/index"
	"github.com/aggroso/knowspace/index/flat"
	"github.com/aggroso/knowspace/metadata"
)

// Workspace is the isolated store of one client: one flat index and one
// metadata list, kept in lockstep.
//
// All operations are safe for concurrent use. Mutations on the same workspace
// serialize against each other and against reads; distinct workspaces never
// contend.
type Workspace struct {
	key    string
	prefix string
	blobs  blobstore.Store
	opts   Options
	logger *slog.Logger
	cdc    codec.Codec

	mu     sync.RWMutex
	loaded bool
	idx    *flat.Flat
	meta   metadata.List
}

func newWorkspace(key, prefix string, blobs blobstore.Store, opts Options) *Workspace {
	return &Workspace{
		key:    key,
		prefix: prefix,
		blobs:  blobs,
		opts:   opts,
		logger: opts.logger().With("workspace", key),
		cdc:    opts.codec(),
	}
}

// Key returns the workspace key.
func (w *Workspace) Key() string { return w.key }

func (w *Workspace) indexName() string    { return w.prefix + IndexArtifact }
func (w *Workspace) metadataName() string { return w.prefix + MetadataArtifact }

func (w *Workspace) emptyIndex() *flat.Flat {
	f, err := flat.New(func(o *flat.Options) {
		o.Dimension = w.opts.Dimension
		o.Compression = w.opts.Compression
	})
	if err != nil {
		// Dimension is validated by the manager at construction time.
		panic(fmt.Sprintf("store: invalid workspace options: %v", err))
	}
	return f
}

// Load materializes the workspace state from its persisted artifacts.
// Absent artifacts are the expected first-use state and yield an empty pair.
// Corrupt artifacts are a data-loss event: logged, then replaced by an empty
// pair so the workspace stays usable. A failed read (cancellation, storage
// outage) is neither: it is returned to the caller and the next operation
// retries the load.
//
// Load is idempotent; every other operation calls it implicitly.
func (w *Workspace) Load(ctx context.Context) error {
	w.mu.RLock()
	loaded := w.loaded
	w.mu.RUnlock()
	if loaded {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded {
		return nil
	}
	return w.loadLocked(ctx)
}

func (w *Workspace) loadLocked(ctx context.Context) error {
	idxData, idxErr := w.blobs.Get(ctx, w.indexName())
	if idxErr != nil && !isNotFound(idxErr) {
		return fmt.Errorf("read index artifact: %w", idxErr)
	}
	metaData, metaErr := w.blobs.Get(ctx, w.metadataName())
	if metaErr != nil && !isNotFound(metaErr) {
		return fmt.Errorf("read metadata artifact: %w", metaErr)
	}

	w.idx = w.emptyIndex()
	w.meta = metadata.List{}
	w.loaded = true

	if isNotFound(idxErr) && isNotFound(metaErr) {
		return nil
	}

	if isNotFound(idxErr) || isNotFound(metaErr) {
		w.logger.Error("workspace pair half missing, starting empty",
			"index_missing", isNotFound(idxErr),
			"metadata_missing", isNotFound(metaErr),
		)
		return nil
	}

	idx, err := flat.Read(bytes.NewReader(idxData), func(o *flat.Options) {
		o.Dimension = w.opts.Dimension
		o.Compression = w.opts.Compression
	})
	if err != nil {
		w.logger.Error("index artifact corrupt, starting empty", "error", err)
		return nil
	}

	var meta metadata.List
	if err := w.cdc.Unmarshal(metaData, &meta); err != nil {
		w.logger.Error("metadata artifact corrupt, starting empty", "error", err)
		return nil
	}

	if idx.Len() != len(meta) {
		w.logger.Error("persisted pair out of sync, starting empty",
			"index_rows", idx.Len(),
			"metadata_entries", len(meta),
		)
		return nil
	}

	w.idx = idx
	w.meta = meta
	w.logger.Debug("workspace loaded", "rows", idx.Len())
	return nil
}

// Count returns the number of indexed rows.
func (w *Workspace) Count(ctx context.Context) (int, error) {
	if err := w.Load(ctx); err != nil {
		return 0, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.idx.Len(), nil
}

// Append adds vectors and their metadata entries as new rows, in order, and
// persists both artifacts. len(vectors) must equal len(entries).
//
// The operation is all-or-nothing: on any failure the in-memory pair and the
// persisted artifacts keep their previous generation.
func (w *Workspace) Append(ctx context.Context, vectors [][]float32, entries metadata.List) error {
	if len(vectors) != len(entries) {
		return fmt.Errorf("%w: %d vectors, %d entries", ErrLengthMismatch, len(vectors), len(entries))
	}
	if err := w.Load(ctx); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	// Validate before touching state so inserts below cannot fail.
	for i, v := range vectors {
		if len(v) != w.opts.Dimension {
			return &index.ErrDimensionMismatch{Expected: w.opts.Dimension, Actual: len(v)}
		}
		if isZeroVector(v) {
			return fmt.Errorf("vector %d: %w", i, index.ErrZeroVector)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prevIndexBytes, err := w.idx.Encode()
	if err != nil {
		return fmt.Errorf("encode previous index: %w", err)
	}

	for _, v := range vectors {
		if _, err := w.idx.Insert(v); err != nil {
			// Validation above makes this unreachable; restore to be safe.
			w.restoreLocked(ctx)
			return fmt.Errorf("insert vector: %w", err)
		}
	}
	w.meta = append(w.meta, entries...)

	if err := w.persistLocked(ctx, prevIndexBytes); err != nil {
		w.restoreLocked(ctx)
		return err
	}

	w.logger.Debug("append completed", "added", len(vectors), "rows", w.idx.Len())
	return nil
}

// Search returns at most k nearest entries to query, closest first.
// A never-written workspace yields an empty result, not an error.
func (w *Workspace) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	return w.search(ctx, query, k, nil)
}

// SearchDocument is Search restricted to rows owned by docID.
func (w *Workspace) SearchDocument(ctx context.Context, query []float32, k int, docID string) ([]Hit, error) {
	return w.search(ctx, query, k, func(meta metadata.List) index.FilterFunc {
		rows := meta.RowsOfDocument(docID)
		return func(row uint32) bool { return rows.Contains(row) }
	})
}

func (w *Workspace) search(ctx context.Context, query []float32, k int, filterFor func(metadata.List) index.FilterFunc) ([]Hit, error) {
	if err := w.Load(ctx); err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.idx.Len() == 0 {
		return []Hit{}, nil
	}

	var filter index.FilterFunc
	if filterFor != nil {
		filter = filterFor(w.meta)
	}

	results, err := w.idx.Search(query, k, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if int(r.Row) >= len(w.meta) {
			// Cannot happen while the pair is owned here; skip defensively
			// mirrors how a reader must treat an unpaired row.
			continue
		}
		hits = append(hits, Hit{
			Entry:    w.meta[r.Row],
			Row:      r.Row,
			Distance: r.Distance,
		})
	}
	return hits, nil
}

// Documents returns one entry per distinct document id, in first-seen order.
func (w *Workspace) Documents(ctx context.Context) ([]metadata.DocumentInfo, error) {
	if err := w.Load(ctx); err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.meta.Documents(), nil
}

// Remove deletes every row owned by docID and rebuilds the index.
// It returns false when the document is not present.
//
// The flat index has no delete primitive, so removal is a rebuild: either
// reconstructing retained vectors from the current index by row position
// (valid exactly when metadata[i] matches row i, which this type guarantees
// and re-checks), or re-embedding the retained chunk texts when a
// re-embedder is configured.
func (w *Workspace) Remove(ctx context.Context, docID string) (bool, error) {
	if err := w.Load(ctx); err != nil {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := w.meta.RowsOfDocument(docID)
	if removed.IsEmpty() {
		return false, nil
	}

	retained := removed.Complement(uint64(len(w.meta)))
	newMeta := w.meta.Select(retained)

	newIdx, err := w.rebuildLocked(ctx, retained, newMeta)
	if err != nil {
		return false, err
	}

	prevIndexBytes, err := w.idx.Encode()
	if err != nil {
		return false, fmt.Errorf("encode previous index: %w", err)
	}

	w.idx = newIdx
	w.meta = newMeta

	if err := w.persistLocked(ctx, prevIndexBytes); err != nil {
		w.restoreLocked(ctx)
		return false, err
	}

	w.logger.Info("document removed",
		"doc_id", docID,
		"rows_removed", removed.Cardinality(),
		"rows_remaining", newIdx.Len(),
	)
	return true, nil
}

// rebuildLocked builds a fresh index holding exactly the retained rows.
func (w *Workspace) rebuildLocked(ctx context.Context, retained *metadata.RowSet, newMeta metadata.List) (*flat.Flat, error) {
	consistent := w.idx.Len() == len(w.meta)

	recompute := w.opts.PreferRecompute || !consistent
	if recompute {
		if w.opts.Reembed == nil {
			if !consistent {
				return nil, fmt.Errorf("%w (%d rows, %d entries): %w", ErrInconsistentPair, w.idx.Len(), len(w.meta), ErrNoReembedder)
			}
			recompute = false
		}
	}

	newIdx := w.emptyIndex()

	if recompute {
		if len(newMeta) == 0 {
			return newIdx, nil
		}
		vectors, err := w.opts.Reembed(ctx, newMeta.Texts())
		if err != nil {
			return nil, fmt.Errorf("re-embed retained chunks: %w", err)
		}
		if len(vectors) != len(newMeta) {
			return nil, fmt.Errorf("%w: %d vectors for %d entries", ErrLengthMismatch, len(vectors), len(newMeta))
		}
		for _, v := range vectors {
			if _, err := newIdx.Insert(v); err != nil {
				return nil, err
			}
		}
		return newIdx, nil
	}

	// Reconstruct path: read retained vectors back by row position. Row
	// position and metadata index are the same integer, which the
	// consistency check above just re-validated.
	for row := range retained.Iterator() {
		v, err := w.idx.Reconstruct(row)
		if err != nil {
			return nil, fmt.Errorf("reconstruct row %d: %w", row, err)
		}
		if _, err := newIdx.Insert(v); err != nil {
			return nil, err
		}
	}
	return newIdx, nil
}

// persistLocked writes both artifacts. If the second write fails after the
// first succeeded, the first is rolled back to prevIndexBytes so readers
// never observe artifacts from different generations.
func (w *Workspace) persistLocked(ctx context.Context, prevIndexBytes []byte) error {
	indexBytes, err := w.idx.Encode()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	metaBytes, err := w.cdc.Marshal(w.meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if err := w.blobs.Put(ctx, w.indexName(), indexBytes); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	if err := w.blobs.Put(ctx, w.metadataName(), metaBytes); err != nil {
		if rbErr := w.blobs.Put(ctx, w.indexName(), prevIndexBytes); rbErr != nil {
			w.logger.Error("rollback of index artifact failed; pair left inconsistent on storage",
				"error", rbErr,
			)
		}
		return fmt.Errorf("persist metadata: %w", err)
	}
	return nil
}

// restoreLocked discards in-memory state and reloads the persisted
// generation after a failed mutation. If the reload itself fails, the
// workspace is marked unloaded and the next operation retries.
func (w *Workspace) restoreLocked(ctx context.Context) {
	w.loaded = false
	if err := w.loadLocked(ctx); err != nil {
		w.logger.Error("reload after failed mutation deferred", "error", err)
	}
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
