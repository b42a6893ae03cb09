package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// MaxTransactRetries bounds how many times Transact re-reads a node after
// losing a compare-and-swap race before giving up.
const MaxTransactRetries = 25

var (
	// ErrNodeNotFound is returned when no node is stored at a path.
	ErrNodeNotFound = errors.New("database: node not found")
	// ErrVersionConflict is returned by CompareAndSwap when the stored version
	// differs from the expected one.
	ErrVersionConflict = errors.New("database: version conflict")
	// ErrTooMuchContention is returned by Transact after MaxTransactRetries lost races.
	ErrTooMuchContention = errors.New("database: too much contention")
	// ErrAbort can be returned by a TransactFn to stop without writing.
	// Transact then returns nil.
	ErrAbort = errors.New("database: transaction aborted")
)

// Node is one subtree of the hierarchical store: a json document stored at a path.
// Version starts at 1 on creation and grows by one with every write.
// A Version of 0 stands for "no node".
type Node struct {
	Path    string
	Value   []byte
	Version int64
}

// Key returns the last segment of the node's path.
func (n Node) Key() string {
	return Base(n.Path)
}

// Tree is a hierarchical key-value store. Every node is read and written as a whole.
// Implementations must make CompareAndSwap atomic with respect to other writers.
type Tree interface {
	// Get returns the node stored at path, or ErrNodeNotFound.
	Get(ctx context.Context, path string) (Node, error)
	// Children returns the direct children of parent in ascending key order.
	Children(ctx context.Context, parent string) ([]Node, error)
	// CompareAndSwap stores value at path if the current version equals version.
	// A version of 0 means the node must not exist yet.
	CompareAndSwap(ctx context.Context, path string, version int64, value []byte) error
	// Close releases the underlying connection.
	Close() error
}

// Join builds a tree path out of segments: Join("users", "42") is "/users/42".
func Join(segments ...string) string {
	return "/" + strings.Join(segments, "/")
}

// Parent returns the path of the node's parent: Parent("/users/42") is "/users".
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// ValidSegment reports whether s can be used as one path segment.
func ValidSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/\x00")
}

// A TransactFn computes the next value of a node from its current value.
// exists is false when there is no node at the path yet.
type TransactFn func(current []byte, exists bool) ([]byte, error)

// Transact runs an optimistic read-modify-write cycle on a single node.
// It reads the node, passes it to fn and writes fn's result back with CompareAndSwap.
// When another writer got there first the whole cycle is repeated, so fn may run
// more than once and must not have side effects beyond computing the new value.
func Transact(ctx context.Context, t Tree, path string, fn TransactFn) error {
	for i := 0; i < MaxTransactRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		exists := true
		node, err := t.Get(ctx, path)
		if errors.Is(err, ErrNodeNotFound) {
			exists = false
			node = Node{Path: path}
		} else if err != nil {
			return err
		}
		next, err := fn(node.Value, exists)
		if errors.Is(err, ErrAbort) {
			return nil
		} else if err != nil {
			return err
		}
		err = t.CompareAndSwap(ctx, path, node.Version, next)
		if errors.Is(err, ErrVersionConflict) {
			if err := backoff(ctx, i); err != nil {
				return err
			}
			continue
		}
		return err
	}
	return fmt.Errorf("transact %s: %w", path, ErrTooMuchContention)
}

// backoff waits a random time that grows with the attempt number, so writers
// that keep colliding on the same node spread out.
func backoff(ctx context.Context, attempt int) error {
	ceiling := time.Duration(1<<min(attempt, 6)) * 100 * time.Microsecond
	timer := time.NewTimer(time.Duration(rand.Int63n(int64(ceiling))))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Read loads and decodes the json document stored at path.
func Read[T any](ctx context.Context, t Tree, path string) (*T, error) {
	node, err := t.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(node.Value, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &v, nil
}

// Create stores v at path. It returns ErrVersionConflict if the path is taken.
func Create[T any](ctx context.Context, t Tree, path string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return t.CompareAndSwap(ctx, path, 0, data)
}

// Update decodes the document at path, lets fn modify it and writes it back,
// retrying on concurrent writes. It returns ErrNodeNotFound if there is no document.
// fn may return ErrAbort to leave the document untouched.
func Update[T any](ctx context.Context, t Tree, path string, fn func(v *T) error) error {
	return Transact(ctx, t, path, func(current []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, ErrNodeNotFound
		}
		var v T
		if err := json.Unmarshal(current, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return json.Marshal(&v)
	})
}

// List decodes every direct child of parent, in ascending key order.
func List[T any](ctx context.Context, t Tree, parent string) ([]T, error) {
	nodes, err := t.Children(ctx, parent)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(nodes))
	for _, n := range nodes {
		var v T
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", n.Path, err)
		}
		out = append(out, v)
	}
	return out, nil
}
