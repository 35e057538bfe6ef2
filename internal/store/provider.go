// Package store resolves vector store backends. The concrete
// implementations live in the milvus and chromem subpackages.
package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/store/chromem"
)

// Provider hands out vector stores by backend and partition. The
// remote index is a single shared store and ignores the partition; the
// local backend keeps one collection per partition so callers get
// physically separate indexes.
type Provider struct {
	mu     sync.Mutex
	remote core.VectorStore
	db     *chromemgo.DB
	dir    string
	local  map[string]core.VectorStore
}

// NewProvider opens the local database at dir and registers the remote
// store. remote may be nil when no remote index is configured; asking
// for it then returns an error.
func NewProvider(remote core.VectorStore, dir string) (*Provider, error) {
	db, err := chromemgo.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open local vector database: %w", err)
	}

	return &Provider{
		remote: remote,
		db:     db,
		dir:    dir,
		local:  make(map[string]core.VectorStore),
	}, nil
}

// For resolves the vector store for a backend and partition key.
func (p *Provider) For(backend core.Backend, partition string) (core.VectorStore, error) {
	switch backend {
	case core.BackendMilvus:
		if p.remote == nil {
			return nil, fmt.Errorf("milvus backend is not configured")
		}
		return p.remote, nil
	case core.BackendChroma:
		return p.localStore(partition)
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownBackend, backend)
}

func (p *Provider) localStore(partition string) (core.VectorStore, error) {
	name := collectionName(partition)

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.local[name]; ok {
		return s, nil
	}

	manifestPath := filepath.Join(p.dir, name+".manifest.json")
	s, err := chromem.NewStore(p.db, name, manifestPath)
	if err != nil {
		return nil, err
	}
	p.local[name] = s
	return s, nil
}

// collectionName maps a partition key onto a chromem collection name,
// restricted to the characters chromem accepts.
func collectionName(partition string) string {
	if partition == "" {
		return "docs"
	}
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, partition)
	return "docs-" + sanitized
}
