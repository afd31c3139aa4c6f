package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/friendlypipe/pkg/cache"
	"github.com/matzehuels/friendlypipe/pkg/config"
)

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "artifacts")

	tests := []struct {
		name     string
		cfg      config.Cache
		noCache  bool
		wantKeep bool
	}{
		{"file", config.Cache{Backend: config.BackendFile, Dir: dir}, false, true},
		{"none", config.Cache{Backend: config.BackendNone}, false, false},
		{"no-cache flag wins", config.Cache{Backend: config.BackendFile, Dir: dir}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newCache(ctx, tt.cfg, tt.noCache)
			if err != nil {
				t.Fatalf("newCache() error: %v", err)
			}
			defer c.Close()

			if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			_, ok, err := c.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if ok != tt.wantKeep {
				t.Errorf("Get() hit = %v, want %v", ok, tt.wantKeep)
			}
		})
	}
}

func TestNewCacheFileIsClearable(t *testing.T) {
	ctx := context.Background()
	c, err := newCache(ctx, config.Cache{Backend: config.BackendFile, Dir: t.TempDir()}, false)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer c.Close()

	if _, ok := c.(cache.Clearer); !ok {
		t.Error("file cache should implement cache.Clearer")
	}
}

func TestNewCacheRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := newCache(ctx, config.Cache{Backend: config.BackendRedis, RedisAddr: "127.0.0.1:1"}, false)
	if err == nil {
		t.Fatal("newCache() should fail for an unreachable redis")
	}
}

func TestCacheLocation(t *testing.T) {
	tests := []struct {
		cfg  config.Cache
		want string
	}{
		{config.Cache{Backend: config.BackendFile, Dir: "/tmp/fp"}, "/tmp/fp"},
		{config.Cache{Backend: config.BackendRedis, RedisAddr: "cache:6379"}, "redis://cache:6379"},
		{config.Cache{Backend: config.BackendNone, Dir: "/tmp/fp"}, "none"},
	}
	for _, tt := range tests {
		if got := cacheLocation(tt.cfg); got != tt.want {
			t.Errorf("cacheLocation(%s) = %q, want %q", tt.cfg.Backend, got, tt.want)
		}
	}
}
