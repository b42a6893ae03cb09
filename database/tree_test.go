package database

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type counter struct {
	N int `json:"n"`
}

func backends(t *testing.T) map[string]func(t *testing.T) Tree {
	return map[string]func(t *testing.T) Tree{
		"memory": func(t *testing.T) Tree {
			return NewMemoryTree()
		},
		"redis": func(t *testing.T) Tree {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			tree := NewRedisTreeFromClient(client, "test:")
			t.Cleanup(func() { tree.Close() })
			return tree
		},
		"sqlite": func(t *testing.T) Tree {
			db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tree.db")), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Silent),
			})
			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			sqlDB.SetMaxOpenConns(1)
			tree, err := NewGormTree(db)
			require.NoError(t, err)
			t.Cleanup(func() { tree.Close() })
			return tree
		},
	}
}

func TestTree(t *testing.T) {
	for name, open := range backends(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Run("GetMissing", func(t *testing.T) {
				tree := open(t)
				_, err := tree.Get(context.Background(), "/users/nobody")
				assert.ErrorIs(t, err, ErrNodeNotFound)
			})

			t.Run("CreateOnce", func(t *testing.T) {
				tree := open(t)
				ctx := context.Background()
				require.NoError(t, tree.CompareAndSwap(ctx, "/users/a", 0, []byte(`{"n":1}`)))
				assert.ErrorIs(t, tree.CompareAndSwap(ctx, "/users/a", 0, []byte(`{"n":2}`)), ErrVersionConflict)

				node, err := tree.Get(ctx, "/users/a")
				require.NoError(t, err)
				assert.Equal(t, int64(1), node.Version)
				assert.JSONEq(t, `{"n":1}`, string(node.Value))
				assert.Equal(t, "a", node.Key())
			})

			t.Run("StaleVersion", func(t *testing.T) {
				tree := open(t)
				ctx := context.Background()
				require.NoError(t, tree.CompareAndSwap(ctx, "/posts/p", 0, []byte(`{"n":1}`)))
				require.NoError(t, tree.CompareAndSwap(ctx, "/posts/p", 1, []byte(`{"n":2}`)))
				assert.ErrorIs(t, tree.CompareAndSwap(ctx, "/posts/p", 1, []byte(`{"n":3}`)), ErrVersionConflict)

				v, err := Read[counter](ctx, tree, "/posts/p")
				require.NoError(t, err)
				assert.Equal(t, 2, v.N)
			})

			t.Run("ChildrenInKeyOrder", func(t *testing.T) {
				tree := open(t)
				ctx := context.Background()
				for _, k := range []string{"c", "a", "b"} {
					require.NoError(t, Create(ctx, tree, Join("posts", k), &counter{N: int(k[0])}))
				}
				require.NoError(t, Create(ctx, tree, Join("comments", "z"), &counter{}))
				require.NoError(t, Create(ctx, tree, Join("follows", "a", "b"), &counter{}))

				nodes, err := tree.Children(ctx, "/posts")
				require.NoError(t, err)
				require.Len(t, nodes, 3)
				assert.Equal(t, []string{"a", "b", "c"}, []string{nodes[0].Key(), nodes[1].Key(), nodes[2].Key()})

				edges, err := tree.Children(ctx, Join("follows", "a"))
				require.NoError(t, err)
				require.Len(t, edges, 1)
				assert.Equal(t, "/follows/a/b", edges[0].Path)

				empty, err := tree.Children(ctx, "/users")
				require.NoError(t, err)
				assert.NotNil(t, empty)
				assert.Empty(t, empty)
			})

			t.Run("ConcurrentTransact", func(t *testing.T) {
				tree := open(t)
				ctx := context.Background()
				require.NoError(t, Create(ctx, tree, "/counters/x", &counter{}))

				const workers = 16
				var wg sync.WaitGroup
				errs := make(chan error, workers)
				for i := 0; i < workers; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						errs <- Update(ctx, tree, "/counters/x", func(c *counter) error {
							c.N++
							return nil
						})
					}()
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					require.NoError(t, err)
				}

				v, err := Read[counter](ctx, tree, "/counters/x")
				require.NoError(t, err)
				assert.Equal(t, workers, v.N)
			})

			t.Run("AbortAndMissing", func(t *testing.T) {
				tree := open(t)
				ctx := context.Background()
				err := Update(ctx, tree, "/counters/none", func(c *counter) error { return nil })
				assert.ErrorIs(t, err, ErrNodeNotFound)

				require.NoError(t, Create(ctx, tree, "/counters/y", &counter{N: 7}))
				err = Update(ctx, tree, "/counters/y", func(c *counter) error {
					c.N = 100
					return ErrAbort
				})
				require.NoError(t, err)
				node, err := tree.Get(ctx, "/counters/y")
				require.NoError(t, err)
				assert.Equal(t, int64(1), node.Version)
			})

			t.Run("List", func(t *testing.T) {
				tree := open(t)
				ctx := context.Background()
				for i := 1; i <= 3; i++ {
					require.NoError(t, Create(ctx, tree, Join("counters", strconv.Itoa(i)), &counter{N: i}))
				}
				all, err := List[counter](ctx, tree, "/counters")
				require.NoError(t, err)
				assert.Equal(t, []counter{{1}, {2}, {3}}, all)
			})
		})
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/users/42", Join("users", "42"))
	assert.Equal(t, "/follows/a/b", Join("follows", "a", "b"))
	assert.Equal(t, "/users", Parent("/users/42"))
	assert.Equal(t, "/", Parent("/users"))
	assert.Equal(t, "42", Base("/users/42"))
	assert.True(t, ValidSegment("0190a1b2-c3d4"))
	assert.False(t, ValidSegment(""))
	assert.False(t, ValidSegment("a/b"))
}

func TestTransactGivesUpUnderContention(t *testing.T) {
	tree := &alwaysConflicting{MemoryTree: NewMemoryTree()}
	err := Transact(context.Background(), tree, "/x", func(current []byte, exists bool) ([]byte, error) {
		return []byte(`{}`), nil
	})
	assert.ErrorIs(t, err, ErrTooMuchContention)
	assert.Equal(t, MaxTransactRetries, tree.attempts)
}

type alwaysConflicting struct {
	*MemoryTree
	attempts int
}

func (a *alwaysConflicting) CompareAndSwap(ctx context.Context, path string, version int64, value []byte) error {
	a.attempts++
	return ErrVersionConflict
}
