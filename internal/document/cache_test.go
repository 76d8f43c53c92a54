package document

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseCacheCachesSuccessfulParse(t *testing.T) {
	cache := NewParseCache(4, time.Hour)
	calls := 0
	parse := func() (*ParsedDocument, error) {
		calls++
		return &ParsedDocument{PageCount: 1}, nil
	}

	first, err := cache.GetOrParse("hash-a", parse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.GetOrParse("hash-a", parse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("parse ran %d times, want 1", calls)
	}
	if first != second {
		t.Errorf("expected the identical cached instance")
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits / %d misses, want 1/1", hits, misses)
	}
}

func TestParseCacheDoesNotCacheErrors(t *testing.T) {
	cache := NewParseCache(4, time.Hour)
	calls := 0
	parse := func() (*ParsedDocument, error) {
		calls++
		return nil, errors.New("boom")
	}

	if _, err := cache.GetOrParse("hash-a", parse); err == nil {
		t.Fatal("expected error")
	}
	if _, err := cache.GetOrParse("hash-a", parse); err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("parse ran %d times, want 2 (errors are not cached)", calls)
	}
}

func TestParseCacheEvictsLRU(t *testing.T) {
	cache := NewParseCache(2, time.Hour)
	parseFor := func(pages int) func() (*ParsedDocument, error) {
		return func() (*ParsedDocument, error) {
			return &ParsedDocument{PageCount: pages}, nil
		}
	}

	_, _ = cache.GetOrParse("a", parseFor(1))
	_, _ = cache.GetOrParse("b", parseFor(2))
	_, _ = cache.GetOrParse("c", parseFor(3)) // evicts "a"

	if cache.Len() != 2 {
		t.Fatalf("cache has %d entries, want 2", cache.Len())
	}

	calls := 0
	_, _ = cache.GetOrParse("a", func() (*ParsedDocument, error) {
		calls++
		return &ParsedDocument{PageCount: 1}, nil
	})
	if calls != 1 {
		t.Errorf("expected 'a' to have been evicted and re-parsed")
	}
}

func TestParseCacheExpiresEntries(t *testing.T) {
	cache := NewParseCache(4, time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	calls := 0
	parse := func() (*ParsedDocument, error) {
		calls++
		return &ParsedDocument{}, nil
	}

	_, _ = cache.GetOrParse("a", parse)
	current = current.Add(2 * time.Minute)
	_, _ = cache.GetOrParse("a", parse)

	if calls != 2 {
		t.Errorf("parse ran %d times, want 2 after TTL expiry", calls)
	}
}

func TestParseCacheSingleFlight(t *testing.T) {
	cache := NewParseCache(4, time.Hour)

	var parses int32
	release := make(chan struct{})
	parse := func() (*ParsedDocument, error) {
		atomic.AddInt32(&parses, 1)
		<-release
		return &ParsedDocument{PageCount: 7}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*ParsedDocument, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := cache.GetOrParse("same-hash", parse)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
			}
			results[i] = doc
		}(i)
	}

	// Let the goroutines pile up on the in-flight parse, then release it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&parses); got != 1 {
		t.Errorf("parse ran %d times, want exactly 1 for a single content hash", got)
	}
	for i, doc := range results {
		if doc == nil || doc.PageCount != 7 {
			t.Errorf("worker %d got %+v", i, doc)
		}
	}
}
