package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStore(client), mr
}

func TestSetGetDel(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "v" {
		t.Fatalf("got %q", got)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	if err := store.Del(ctx, "k"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil passthrough", err)
	}

	ok, err := store.Exists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
}

func TestGetWrapsInfrastructureErrors(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	if _, err := store.Get(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSubscribeDeliversPublished(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	got := make(chan [2]string, 1)
	sub, err := store.Subscribe(ctx, func(channel, payload string) {
		got <- [2]string{channel, payload}
	}, "events:test")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if err := store.Publish(ctx, "events:test", `{"ok":true}`); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-got:
		if msg[0] != "events:test" || msg[1] != `{"ok":true}` {
			t.Fatalf("message = %v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}
