package store

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/aggroso/knowspace/blobstore"
	"github.com/aggroso/knowspace/index"
)

// DefaultWorkspace is the key used when a caller supplies none.
const DefaultWorkspace = "anonymous"

// Manager hands out workspaces by key, creating each lazily on first use.
// The same key always yields the same *Workspace instance, so per-workspace
// locking composes across callers.
type Manager struct {
	blobs blobstore.Store
	opts  Options

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewManager creates a workspace manager on top of the given blob store.
func NewManager(blobs blobstore.Store, optFns ...func(o *Options)) (*Manager, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}

	return &Manager{
		blobs:      blobs,
		opts:       opts,
		workspaces: make(map[string]*Workspace),
	}, nil
}

// Workspace returns the workspace for key, creating it on first use.
// An empty key maps to DefaultWorkspace.
func (m *Manager) Workspace(key string) *Workspace {
	if key == "" {
		key = DefaultWorkspace
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[key]; ok {
		return ws
	}

	ws := newWorkspace(key, workspacePrefix(key), m.blobs, m.opts)
	m.workspaces[key] = ws
	return ws
}

// Keys returns the keys of all workspaces touched since startup.
// It does not enumerate persisted workspaces that were never accessed.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.workspaces))
	for k := range m.workspaces {
		keys = append(keys, k)
	}
	return keys
}

// workspacePrefix derives the blob name prefix for a workspace key.
// Unsafe characters are replaced so the prefix is a valid path segment, and
// an FNV-1a suffix keeps distinct keys distinct after replacement.
func workspacePrefix(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)

	const maxLen = 64
	if len(sanitized) > maxLen {
		sanitized = sanitized[:maxLen]
	}

	if sanitized == key {
		return "ws/" + sanitized + "/"
	}

	h := fnv.New32a()
	h.Write([]byte(key))
	return fmt.Sprintf("ws/%s-%08x/", sanitized, h.Sum32())
}
