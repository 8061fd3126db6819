package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggroso/knowspace/blobstore"
	"github.com/aggroso/knowspace/metadata"
)

const testDim = 4

func testManager(t *testing.T, blobs blobstore.Store, optFns ...func(o *Options)) *Manager {
	t.Helper()
	m, err := NewManager(blobs, append([]func(o *Options){func(o *Options) {
		o.Dimension = testDim
	}}, optFns...)...)
	require.NoError(t, err)
	return m
}

// axis returns the unit vector along dimension i.
func axis(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func seedWorkspace(t *testing.T, ws *Workspace) {
	t.Helper()
	err := ws.Append(context.Background(), [][]float32{axis(0), axis(1), axis(2)}, metadata.List{
		{Document: "a.txt", Text: "chunk a0", DocID: "doc-a"},
		{Document: "a.txt", Text: "chunk a1", DocID: "doc-a"},
		{Document: "b.txt", Text: "chunk b0", DocID: "doc-b"},
	})
	require.NoError(t, err)
}

func TestWorkspaceAppendSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		hits, err := ws.Search(ctx, axis(1), 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)

		assert.Equal(t, "chunk a1", hits[0].Entry.Text)
		assert.Equal(t, uint32(1), hits[0].Row)
		assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
		assert.Greater(t, hits[1].Distance, hits[0].Distance)
	})

	t.Run("MetadataAlignedWithRows", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		for i, want := range []string{"chunk a0", "chunk a1", "chunk b0"} {
			hits, err := ws.Search(ctx, axis(i), 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, want, hits[0].Entry.Text)
			assert.Equal(t, uint32(i), hits[0].Row)
		}
	})

	t.Run("EmptyWorkspace", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("untouched")

		hits, err := ws.Search(ctx, axis(0), 5)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)

		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")

		err := ws.Append(ctx, [][]float32{axis(0)}, metadata.List{{}, {}})
		require.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("DimensionMismatchLeavesStateUntouched", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		err := ws.Append(ctx, [][]float32{{1, 0}}, metadata.List{{Text: "short"}})
		require.Error(t, err)

		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("FilteredByDocument", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		hits, err := ws.SearchDocument(ctx, axis(2), 10, "doc-a")
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Equal(t, "doc-a", h.Entry.DocID)
		}
	})
}

func TestWorkspacePersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("SurvivesRestart", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()

		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		// A fresh manager on the same storage sees the persisted pair.
		ws := testManager(t, blobs).Workspace("team")
		hits, err := ws.Search(ctx, axis(0), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk a0", hits[0].Entry.Text)
	})

	t.Run("CorruptIndexStartsEmpty", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		require.NoError(t, blobs.Put(ctx, workspacePrefix("team")+IndexArtifact, []byte("garbage")))

		ws := testManager(t, blobs).Workspace("team")
		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("CorruptMetadataStartsEmpty", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		require.NoError(t, blobs.Put(ctx, workspacePrefix("team")+MetadataArtifact, []byte("{not json")))

		ws := testManager(t, blobs).Workspace("team")
		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

// faultStore injects failures in front of a memory store.
type faultStore struct {
	*blobstore.MemoryStore
	failGet func(name string) error
	failPut func(name string) error
}

func newFaultStore() *faultStore {
	return &faultStore{MemoryStore: blobstore.NewMemoryStore()}
}

func (s *faultStore) Get(ctx context.Context, name string) ([]byte, error) {
	if s.failGet != nil {
		if err := s.failGet(name); err != nil {
			return nil, err
		}
	}
	return s.MemoryStore.Get(ctx, name)
}

func (s *faultStore) Put(ctx context.Context, name string, data []byte) error {
	if s.failPut != nil {
		if err := s.failPut(name); err != nil {
			return err
		}
	}
	return s.MemoryStore.Put(ctx, name, data)
}

func TestWorkspaceLoadFailure(t *testing.T) {
	ctx := context.Background()
	readDown := errors.New("storage unreachable")
	failAll := func(string) error { return readDown }

	t.Run("TransientReadErrorSurfaces", func(t *testing.T) {
		blobs := newFaultStore()
		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		blobs.failGet = failAll
		ws := testManager(t, blobs).Workspace("team")

		_, err := ws.Count(ctx)
		require.ErrorIs(t, err, readDown)

		_, err = ws.Search(ctx, axis(0), 1)
		require.ErrorIs(t, err, readDown)
	})

	t.Run("LoadRetriedAfterRecovery", func(t *testing.T) {
		blobs := newFaultStore()
		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		blobs.failGet = failAll
		ws := testManager(t, blobs).Workspace("team")
		_, err := ws.Count(ctx)
		require.Error(t, err)

		// The outage did not degrade the workspace to an empty pair.
		blobs.failGet = nil
		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hits, err := ws.Search(ctx, axis(0), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk a0", hits[0].Entry.Text)
	})

	t.Run("AppendDuringOutageWritesNothing", func(t *testing.T) {
		blobs := newFaultStore()
		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		blobs.failGet = failAll
		ws := testManager(t, blobs).Workspace("team")

		err := ws.Append(ctx, [][]float32{axis(3)}, metadata.List{
			{Document: "c.txt", Text: "chunk c0", DocID: "doc-c"},
		})
		require.ErrorIs(t, err, readDown)

		// The persisted pair keeps its previous generation.
		blobs.failGet = nil
		fresh := testManager(t, blobs).Workspace("team")
		n, err := fresh.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("CanceledContextSurfaces", func(t *testing.T) {
		blobs := newFaultStore()
		seedWorkspace(t, testManager(t, blobs).Workspace("team"))

		blobs.failGet = func(string) error { return context.Canceled }
		ws := testManager(t, blobs).Workspace("team")
		_, err := ws.Count(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkspacePersistRollback(t *testing.T) {
	ctx := context.Background()
	writeDown := errors.New("metadata write refused")

	failMetadata := func(blobs *faultStore) {
		blobs.failPut = func(name string) error {
			if strings.HasSuffix(name, MetadataArtifact) {
				return writeDown
			}
			return nil
		}
	}

	t.Run("AppendRolledBack", func(t *testing.T) {
		blobs := newFaultStore()
		ws := testManager(t, blobs).Workspace("team")
		seedWorkspace(t, ws)

		failMetadata(blobs)
		err := ws.Append(ctx, [][]float32{axis(3)}, metadata.List{
			{Document: "c.txt", Text: "chunk c0", DocID: "doc-c"},
		})
		require.ErrorIs(t, err, writeDown)

		// In-memory pair reverted to the previous generation.
		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hits, err := ws.Search(ctx, axis(3), 10)
		require.NoError(t, err)
		for _, h := range hits {
			assert.NotEqual(t, "chunk c0", h.Entry.Text)
		}

		// Persisted artifacts too: after the index rollback a fresh load
		// sees the old pair in sync, not an index/metadata mismatch.
		blobs.failPut = nil
		fresh := testManager(t, blobs).Workspace("team")
		n, err = fresh.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hits, err = fresh.Search(ctx, axis(0), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk a0", hits[0].Entry.Text)
	})

	t.Run("WorkspaceUsableAfterRollback", func(t *testing.T) {
		blobs := newFaultStore()
		ws := testManager(t, blobs).Workspace("team")
		seedWorkspace(t, ws)

		failMetadata(blobs)
		err := ws.Append(ctx, [][]float32{axis(3)}, metadata.List{
			{Document: "c.txt", Text: "chunk c0", DocID: "doc-c"},
		})
		require.ErrorIs(t, err, writeDown)

		// Once storage recovers, the same append succeeds cleanly.
		blobs.failPut = nil
		err = ws.Append(ctx, [][]float32{axis(3)}, metadata.List{
			{Document: "c.txt", Text: "chunk c0", DocID: "doc-c"},
		})
		require.NoError(t, err)

		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		hits, err := ws.Search(ctx, axis(3), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk c0", hits[0].Entry.Text)
	})

	t.Run("RemoveRolledBack", func(t *testing.T) {
		blobs := newFaultStore()
		ws := testManager(t, blobs).Workspace("team")
		seedWorkspace(t, ws)

		failMetadata(blobs)
		_, err := ws.Remove(ctx, "doc-a")
		require.ErrorIs(t, err, writeDown)

		blobs.failPut = nil
		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hits, err := ws.Search(ctx, axis(0), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "doc-a", hits[0].Entry.DocID)
	})
}

func TestWorkspaceRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("Reconstruct", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		removed, err := ws.Remove(ctx, "doc-a")
		require.NoError(t, err)
		assert.True(t, removed)

		n, err := ws.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// The survivor moved to row 0 and still resolves to its own entry.
		hits, err := ws.Search(ctx, axis(2), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk b0", hits[0].Entry.Text)
		assert.Equal(t, uint32(0), hits[0].Row)
		assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
	})

	t.Run("Recompute", func(t *testing.T) {
		var reembedded [][]string
		reembed := func(_ context.Context, texts []string) ([][]float32, error) {
			reembedded = append(reembedded, texts)
			vectors := make([][]float32, len(texts))
			for i := range texts {
				vectors[i] = axis(2)
			}
			return vectors, nil
		}

		ws := testManager(t, blobstore.NewMemoryStore(), func(o *Options) {
			o.Reembed = reembed
			o.PreferRecompute = true
		}).Workspace("team")
		seedWorkspace(t, ws)

		removed, err := ws.Remove(ctx, "doc-a")
		require.NoError(t, err)
		assert.True(t, removed)
		require.Len(t, reembedded, 1)
		assert.Equal(t, []string{"chunk b0"}, reembedded[0])

		hits, err := ws.Search(ctx, axis(2), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk b0", hits[0].Entry.Text)
	})

	t.Run("ReconstructAndRecomputeAgree", func(t *testing.T) {
		reembed := func(_ context.Context, texts []string) ([][]float32, error) {
			// Same deterministic mapping the seed used.
			byText := map[string][]float32{"chunk b0": axis(2)}
			vectors := make([][]float32, len(texts))
			for i, txt := range texts {
				vectors[i] = byText[txt]
			}
			return vectors, nil
		}

		run := func(t *testing.T, optFns ...func(o *Options)) []Hit {
			ws := testManager(t, blobstore.NewMemoryStore(), optFns...).Workspace("team")
			seedWorkspace(t, ws)
			_, err := ws.Remove(ctx, "doc-a")
			require.NoError(t, err)
			hits, err := ws.Search(ctx, axis(2), 10)
			require.NoError(t, err)
			return hits
		}

		reconstructed := run(t)
		recomputed := run(t, func(o *Options) {
			o.Reembed = reembed
			o.PreferRecompute = true
		})
		assert.Equal(t, reconstructed, recomputed)
	})

	t.Run("AbsentDocument", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		removed, err := ws.Remove(ctx, "doc-z")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("RemoveTwice", func(t *testing.T) {
		ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
		seedWorkspace(t, ws)

		removed, err := ws.Remove(ctx, "doc-b")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = ws.Remove(ctx, "doc-b")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("RemoveAllPersistsEmptyPair", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		ws := testManager(t, blobs).Workspace("team")
		seedWorkspace(t, ws)

		for _, docID := range []string{"doc-a", "doc-b"} {
			removed, err := ws.Remove(ctx, docID)
			require.NoError(t, err)
			assert.True(t, removed)
		}

		// The emptied state is durable, not just in memory.
		fresh := testManager(t, blobs).Workspace("team")
		n, err := fresh.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestWorkspaceDocuments(t *testing.T) {
	ctx := context.Background()

	ws := testManager(t, blobstore.NewMemoryStore()).Workspace("team")
	seedWorkspace(t, ws)

	docs, err := ws.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []metadata.DocumentInfo{
		{DocID: "doc-a", Filename: "a.txt"},
		{DocID: "doc-b", Filename: "b.txt"},
	}, docs)
}

func TestManager(t *testing.T) {
	t.Run("SameKeySameInstance", func(t *testing.T) {
		m := testManager(t, blobstore.NewMemoryStore())
		assert.Same(t, m.Workspace("team"), m.Workspace("team"))
	})

	t.Run("DistinctKeysIsolated", func(t *testing.T) {
		ctx := context.Background()
		m := testManager(t, blobstore.NewMemoryStore())

		seedWorkspace(t, m.Workspace("alpha"))

		hits, err := m.Workspace("beta").Search(ctx, axis(0), 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("EmptyKeyIsAnonymous", func(t *testing.T) {
		m := testManager(t, blobstore.NewMemoryStore())
		assert.Same(t, m.Workspace(DefaultWorkspace), m.Workspace(""))
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := NewManager(blobstore.NewMemoryStore(), func(o *Options) {
			o.Dimension = 0
		})
		require.Error(t, err)
	})
}

func TestWorkspacePrefix(t *testing.T) {
	t.Run("SafeKeyUnchanged", func(t *testing.T) {
		assert.Equal(t, "ws/team-1.alpha/", workspacePrefix("team-1.alpha"))
	})

	t.Run("UnsafeKeySanitized", func(t *testing.T) {
		prefix := workspacePrefix("team/../../etc")
		assert.NotContains(t, prefix[3:len(prefix)-1], "/")
	})

	t.Run("DistinctKeysStayDistinct", func(t *testing.T) {
		seen := map[string]string{}
		for _, key := range []string{"a/b", "a_b", "a:b", "a b"} {
			prefix := workspacePrefix(key)
			prev, dup := seen[prefix]
			require.False(t, dup, "prefix %q shared by %q and %q", prefix, prev, key)
			seen[prefix] = key
		}
	})

	t.Run("LongKeyTruncatedButUnique", func(t *testing.T) {
		long := ""
		for i := 0; i < 40; i++ {
			long += fmt.Sprintf("seg%d/", i)
		}
		a := workspacePrefix(long + "x")
		b := workspacePrefix(long + "y")
		assert.NotEqual(t, a, b)
	})
}
