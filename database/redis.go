package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings of a Redis backed tree.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisTree stores every node as a hash {data, rev} under prefix+path.
// Each parent keeps a sorted set of its child keys (all scored 0, so the
// set is ordered lexicographically) to answer Children.
type RedisTree struct {
	client *redis.Client
	prefix string
}

// casScript writes a node only if its revision still matches ARGV[1]
// and registers the node in its parent's child index.
// Returns 1 on success, 0 on a revision mismatch.
var casScript = redis.NewScript(`
local rev = tonumber(redis.call("HGET", KEYS[1], "rev") or "0")
if rev ~= tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "data", ARGV[2], "rev", rev + 1)
redis.call("ZADD", KEYS[2], 0, ARGV[3])
return 1
`)

// NewRedisTree connects to Redis and returns a tree on top of it.
func NewRedisTree(cfg RedisConfig) (*RedisTree, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisTreeFromClient(client, cfg.Prefix), nil
}

// NewRedisTreeFromClient wraps an existing client. All keys are namespaced with prefix.
func NewRedisTreeFromClient(client *redis.Client, prefix string) *RedisTree {
	return &RedisTree{
		client: client,
		prefix: prefix,
	}
}

var _ Tree = &RedisTree{}

func (r *RedisTree) nodeKey(path string) string {
	return r.prefix + "node:" + path
}

func (r *RedisTree) indexKey(parent string) string {
	return r.prefix + "children:" + parent
}

// Get returns the node stored at path.
func (r *RedisTree) Get(ctx context.Context, path string) (Node, error) {
	vals, err := r.client.HMGet(ctx, r.nodeKey(path), "data", "rev").Result()
	if err != nil {
		return Node{}, fmt.Errorf("redis get %s: %w", path, err)
	}
	return decodeRedisNode(path, vals)
}

// Children returns the direct children of parent sorted by key.
func (r *RedisTree) Children(ctx context.Context, parent string) ([]Node, error) {
	keys, err := r.client.ZRange(ctx, r.indexKey(parent), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis children %s: %w", parent, err)
	}
	if len(keys) == 0 {
		return []Node{}, nil
	}

	base := parent
	if base == "/" {
		base = ""
	}
	cmds := make([]*redis.SliceCmd, len(keys))
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HMGet(ctx, r.nodeKey(base+"/"+k), "data", "rev")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis children %s: %w", parent, err)
	}

	out := make([]Node, 0, len(keys))
	for i, k := range keys {
		n, err := decodeRedisNode(base+"/"+k, cmds[i].Val())
		if errors.Is(err, ErrNodeNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// CompareAndSwap runs casScript for path.
func (r *RedisTree) CompareAndSwap(ctx context.Context, path string, version int64, value []byte) error {
	keys := []string{r.nodeKey(path), r.indexKey(Parent(path))}
	ok, err := casScript.Run(ctx, r.client, keys, version, value, Base(path)).Int()
	if err != nil {
		return fmt.Errorf("redis cas %s: %w", path, err)
	}
	if ok == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisTree) Close() error {
	return r.client.Close()
}

func decodeRedisNode(path string, vals []interface{}) (Node, error) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Node{}, ErrNodeNotFound
	}
	data, _ := vals[0].(string)
	revStr, _ := vals[1].(string)
	rev, err := strconv.ParseInt(revStr, 10, 64)
	if err != nil {
		return Node{}, fmt.Errorf("parse revision of %s: %w", path, err)
	}
	return Node{Path: path, Value: []byte(data), Version: rev}, nil
}
