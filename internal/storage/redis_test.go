package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-player/internal/config"
)

// memoryRedis answers GET, SET and DEL from a map inside the client's hook
// chain, so no server is dialed.
type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
	sets [][]interface{}
}

func (m *memoryRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("dial %s: no server in tests", addr)
	}
}

func (m *memoryRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memoryRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		args := cmd.Args()
		key := fmt.Sprint(args[1])
		switch c := cmd.(type) {
		case *redis.StringCmd:
			val, ok := m.data[key]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(val)
		case *redis.StatusCmd:
			m.sets = append(m.sets, args)
			switch v := args[2].(type) {
			case []byte:
				m.data[key] = string(v)
			default:
				m.data[key] = fmt.Sprint(v)
			}
			c.SetVal("OK")
		case *redis.IntCmd:
			_, ok := m.data[key]
			delete(m.data, key)
			if ok {
				c.SetVal(1)
			}
		default:
			return fmt.Errorf("unexpected command %s", cmd.Name())
		}
		return nil
	}
}

func newMemoryRedis(t *testing.T) (*redis.Client, *memoryRedis) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })
	fake := &memoryRedis{data: make(map[string]string)}
	rdb.AddHook(fake)
	return rdb, fake
}

func TestRedisStore(t *testing.T) {
	rdb, _ := newMemoryRedis(t)
	exerciseStore(t, NewRedisStore(rdb, 0))
}

func TestRedisStoreNamespacesKeys(t *testing.T) {
	rdb, fake := newMemoryRedis(t)
	s := NewRedisStore(rdb, 24*time.Hour)
	ctx := context.Background()
	key := config.CacheKey.QuizProgressKey("quiz-42")

	// A foreign value under the bare key must not leak into the player.
	fake.data[key] = "other app"
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get read an un-namespaced key: err = %v", err)
	}

	if err := s.Set(ctx, key, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := fake.data["player:quiz_progress_quiz-42"]; got != `{"a":1}` {
		t.Fatalf("stored under namespaced key = %q, data = %v", got, fake.data)
	}
	if fake.data[key] != "other app" {
		t.Fatal("Set overwrote the bare key")
	}

	last := fake.sets[len(fake.sets)-1]
	if len(last) != 5 || !strings.EqualFold(fmt.Sprint(last[3]), "ex") || fmt.Sprint(last[4]) != "86400" {
		t.Fatalf("SET args = %v, want ex 86400", last)
	}
}
