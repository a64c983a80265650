package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := NewCache()

	c.Set("hello", []byte("world"))

	value, ok := c.Get("hello")
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if !bytes.Equal(value, []byte("world")) {
		t.Errorf("expected 'world', got %q", value)
	}

	// Overwrite
	c.Set("hello", []byte("again"))
	value, _ = c.Get("hello")
	if !bytes.Equal(value, []byte("again")) {
		t.Errorf("expected 'again', got %q", value)
	}
}

func TestGetMissing(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get("missing"); ok {
		t.Errorf("expected missing key to not exist")
	}
}

func TestDelete(t *testing.T) {
	c := NewCache()

	c.Set("key", []byte("value"))

	if !c.Delete("key") {
		t.Errorf("expected delete of existing key to report true")
	}
	if _, ok := c.Get("key"); ok {
		t.Errorf("expected key to be gone after delete")
	}
	if c.Delete("key") {
		t.Errorf("expected delete of missing key to report false")
	}
}

func TestExpiry(t *testing.T) {
	c := NewCache()

	// SetE with zero expiry behaves like Set
	c.SetE("forever", []byte("value"), 0)
	if _, ok := c.Get("forever"); !ok {
		t.Errorf("expected key without expiry to exist")
	}

	c.SetE("short", []byte("value"), 1)
	if _, ok := c.Get("short"); !ok {
		t.Errorf("expected key to exist before expiry")
	}

	time.Sleep(1100 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Errorf("expected key to be expired")
	}
	if c.Delete("short") {
		t.Errorf("expected delete of expired key to report false")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("worker-%d-key-%d", worker, j)
				c.Set(key, []byte("value"))
				if _, ok := c.Get(key); !ok {
					t.Errorf("expected key %s to exist", key)
				}
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Size())
	}
}
