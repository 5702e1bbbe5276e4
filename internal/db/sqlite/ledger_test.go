package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

func TestRecordAndCountMonotonicWithinWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clock := newTestClient(t)

	for want := 1; want <= 4; want++ {
		count, err := client.RecordAndCount(ctx, 1, 2, db.CategorySticker, 30*time.Second, "")
		if err != nil {
			t.Fatalf("record %d: %v", want, err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
		clock.Advance(time.Second)
	}
}

func TestRecordAndCountWindowExcludesOldEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clock := newTestClient(t)

	if _, err := client.RecordAndCount(ctx, 1, 2, db.CategorySticker, 30*time.Second, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := client.RecordAndCount(ctx, 1, 2, db.CategorySticker, 30*time.Second, ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	clock.Advance(31 * time.Second)
	count, err := client.RecordAndCount(ctx, 1, 2, db.CategorySticker, 30*time.Second, "")
	if err != nil {
		t.Fatalf("record after gap: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after gap = %d, want 1", count)
	}
}

func TestRecordAndCountKeysAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	seed := []struct {
		chatID      int64
		userID      int64
		category    db.Category
		fingerprint string
	}{
		{1, 2, db.CategoryText, "aaa"},
		{1, 2, db.CategoryText, "bbb"},
		{1, 2, db.CategoryPhoto, "aaa"},
		{1, 3, db.CategoryText, "aaa"},
		{9, 2, db.CategoryText, "aaa"},
	}
	for _, s := range seed {
		if _, err := client.RecordAndCount(ctx, s.chatID, s.userID, s.category, time.Minute, s.fingerprint); err != nil {
			t.Fatalf("seed %+v: %v", s, err)
		}
	}

	count, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, time.Minute, "aaa")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 (one seed plus this event)", count)
	}
}

func TestRecordAndCountEmptyFingerprintCountsWholeCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	for _, fp := range []string{"sticker-1", "sticker-2"} {
		// Callers store sticker events without a fingerprint, but even mixed
		// rows are all counted when the query key carries none.
		if _, err := client.RecordAndCount(ctx, 1, 2, db.CategorySticker, time.Minute, fp); err != nil {
			t.Fatalf("seed %s: %v", fp, err)
		}
	}

	count, err := client.RecordAndCount(ctx, 1, 2, db.CategorySticker, time.Minute, "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestRecordAndCountConcurrentSameKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	const writers = 8
	counts := make([]int, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			count, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, time.Minute, "same")
			if err != nil {
				t.Errorf("record %d: %v", i, err)
				return
			}
			counts[i] = count
		}(i)
	}
	wg.Wait()

	// Serialized appends must hand out each count exactly once.
	seen := map[int]bool{}
	for _, count := range counts {
		if count < 1 || count > writers {
			t.Fatalf("count %d outside [1,%d]", count, writers)
		}
		if seen[count] {
			t.Fatalf("count %d handed out twice: %v", count, counts)
		}
		seen[count] = true
	}
}

func TestPruneActivityKeepsRecentEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clock := newTestClient(t)

	if _, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, time.Minute, "old"); err != nil {
		t.Fatalf("record old: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, time.Minute, "new"); err != nil {
		t.Fatalf("record new: %v", err)
	}

	deleted, err := client.PruneActivity(ctx, time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	count, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, 3*time.Hour, "new")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if count != 2 {
		t.Fatalf("recent event lost to pruning, count = %d, want 2", count)
	}
}

func TestClearActivityScopedToUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	if _, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, time.Minute, "fp"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := client.RecordAndCount(ctx, 1, 3, db.CategoryText, time.Minute, "fp"); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := client.ClearActivity(ctx, 1, 2); err != nil {
		t.Fatalf("clear: %v", err)
	}

	count, err := client.RecordAndCount(ctx, 1, 2, db.CategoryText, time.Minute, "fp")
	if err != nil {
		t.Fatalf("record after clear: %v", err)
	}
	if count != 1 {
		t.Fatalf("cleared user count = %d, want 1", count)
	}

	count, err = client.RecordAndCount(ctx, 1, 3, db.CategoryText, time.Minute, "fp")
	if err != nil {
		t.Fatalf("record other user: %v", err)
	}
	if count != 2 {
		t.Fatalf("other user count = %d, want untouched 2", count)
	}
}
