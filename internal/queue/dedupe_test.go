package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestUpdateDeduplicatorMarkFirst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d := NewUpdateDeduplicator(rdb, time.Minute)

	first, err := d.MarkFirst(context.Background(), 777)
	if err != nil {
		t.Fatalf("mark#1: %v", err)
	}
	if !first {
		t.Fatal("expected first delivery to be marked new")
	}

	first, err = d.MarkFirst(context.Background(), 777)
	if err != nil {
		t.Fatalf("mark#2: %v", err)
	}
	if first {
		t.Fatal("expected repeat delivery to be dropped")
	}

	first, err = d.MarkFirst(context.Background(), 778)
	if err != nil {
		t.Fatalf("mark#3: %v", err)
	}
	if !first {
		t.Fatal("a different update id must not be deduplicated")
	}
}

func TestUpdateDeduplicatorKeyExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d := NewUpdateDeduplicator(rdb, time.Second)
	if _, err := d.MarkFirst(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(2 * time.Second)

	first, err := d.MarkFirst(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Fatal("expected the key to have expired")
	}
}
