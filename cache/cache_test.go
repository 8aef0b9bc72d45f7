package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	key := Key("ds0", "SELECT * FROM t_order_0")
	value := []byte("encoded-result")

	c.Set(key, value, time.Minute)

	// Small delay to allow async set to complete
	time.Sleep(10 * time.Millisecond)

	got, ok := c.Get(key)
	if !ok {
		t.Errorf("Get(%q) returned ok=false, want true", key)
	}
	if string(got) != string(value) {
		t.Errorf("Get(%q) = %q, want %q", key, got, value)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Errorf("Get(nonexistent) returned ok=true, want false")
	}
}

func TestCache_Delete(t *testing.T) {
	c, err := New(1000)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	key := Key("ds0", "SELECT 1")
	c.Set(key, []byte("value"), time.Minute)
	time.Sleep(10 * time.Millisecond)

	c.Delete(key)
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Errorf("Get after Delete should return ok=false")
	}
}

func TestKey_SeparatesDatasources(t *testing.T) {
	a := Key("ds0", "SELECT * FROM t_order_0")
	b := Key("ds1", "SELECT * FROM t_order_0")
	if a == b {
		t.Error("same SQL on different datasources must not share a key")
	}
}

func TestParseHint(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantTTL   int
		wantQuery string
	}{
		{
			name:      "leading hint",
			query:     "/* ttl:60 */ SELECT * FROM t_order WHERE user_id = 1",
			wantTTL:   60,
			wantQuery: "SELECT * FROM t_order WHERE user_id = 1",
		},
		{
			name:      "no spaces",
			query:     "/*ttl:30*/SELECT 1",
			wantTTL:   30,
			wantQuery: "SELECT 1",
		},
		{
			name:      "no hint",
			query:     "SELECT 1",
			wantTTL:   0,
			wantQuery: "SELECT 1",
		},
		{
			name:      "unrelated comment kept",
			query:     "/* note */ SELECT 1",
			wantTTL:   0,
			wantQuery: "/* note */ SELECT 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := ParseHint(tc.query)
			if h.TTL != tc.wantTTL {
				t.Errorf("TTL = %d, want %d", h.TTL, tc.wantTTL)
			}
			if h.Query != tc.wantQuery {
				t.Errorf("Query = %q, want %q", h.Query, tc.wantQuery)
			}
			if h.Cacheable() != (tc.wantTTL > 0) {
				t.Errorf("Cacheable() = %v, want %v", h.Cacheable(), tc.wantTTL > 0)
			}
		})
	}
}
