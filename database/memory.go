package database

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryTree is a Tree held in process memory. It backs local development and tests.
type MemoryTree struct {
	mu    sync.RWMutex
	nodes map[string]memoryNode
}

type memoryNode struct {
	value   []byte
	version int64
}

// NewMemoryTree returns an empty MemoryTree.
func NewMemoryTree() *MemoryTree {
	return &MemoryTree{
		nodes: make(map[string]memoryNode),
	}
}

var _ Tree = &MemoryTree{}

// Get returns a copy of the node stored at path.
func (m *MemoryTree) Get(ctx context.Context, path string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[path]
	if !ok {
		return Node{}, ErrNodeNotFound
	}
	return Node{Path: path, Value: clone(n.value), Version: n.version}, nil
}

// Children returns the direct children of parent sorted by key.
func (m *MemoryTree) Children(ctx context.Context, parent string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(parent, "/") + "/"
	m.mu.RLock()
	out := make([]Node, 0)
	for path, n := range m.nodes {
		rest := strings.TrimPrefix(path, prefix)
		if rest == path || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, Node{Path: path, Value: clone(n.value), Version: n.version})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// CompareAndSwap writes value at path if the stored version matches.
func (m *MemoryTree) CompareAndSwap(ctx context.Context, path string, version int64, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nodes[path].version != version {
		return ErrVersionConflict
	}
	m.nodes[path] = memoryNode{value: clone(value), version: version + 1}
	return nil
}

// Close is a no-op.
func (m *MemoryTree) Close() error {
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
