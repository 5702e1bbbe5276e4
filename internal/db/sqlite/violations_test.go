package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wardenbot/warden/internal/moderation"
)

func TestEscalateWalksTheLadder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clock := newTestClient(t)
	durations := moderation.DefaultEscalationPolicy().DurationFor

	want := []time.Duration{
		10 * time.Minute,
		60 * time.Minute,
		300 * time.Minute,
		1440 * time.Minute,
		2880 * time.Minute,
		2880 * time.Minute,
	}
	for i, wantDuration := range want {
		ordinal, duration, err := client.Escalate(ctx, 1, 2, durations)
		if err != nil {
			t.Fatalf("escalate %d: %v", i+1, err)
		}
		if ordinal != i+1 {
			t.Fatalf("ordinal = %d, want %d", ordinal, i+1)
		}
		if duration != wantDuration {
			t.Fatalf("duration for ordinal %d = %v, want %v", ordinal, duration, wantDuration)
		}
		clock.Advance(duration + time.Minute)
	}
}

func TestEscalateStoresRestrictionExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clock := newTestClient(t)

	before, err := client.GetViolation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get missing violation: %v", err)
	}
	if before != nil {
		t.Fatalf("expected nil record for unknown user, got %+v", before)
	}

	if _, _, err := client.Escalate(ctx, 1, 2, func(int) time.Duration { return 10 * time.Minute }); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	record, err := client.GetViolation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get violation: %v", err)
	}
	if record == nil || record.Count != 1 {
		t.Fatalf("record = %+v, want count 1", record)
	}
	if record.RestrictedUntil == nil {
		t.Fatalf("restriction expiry not stored")
	}
	wantUntil := clock.Now().Add(10 * time.Minute)
	if !record.RestrictedUntil.Equal(wantUntil) {
		t.Fatalf("restricted until %v, want %v", record.RestrictedUntil, wantUntil)
	}
	if !record.LastViolationAt.Equal(clock.Now()) {
		t.Fatalf("last violation at %v, want %v", record.LastViolationAt, clock.Now())
	}
}

func TestEscalateConcurrentAssignsDistinctOrdinals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	const offenders = 2
	ordinals := make([]int, offenders)

	var wg sync.WaitGroup
	for i := 0; i < offenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ordinal, _, err := client.Escalate(ctx, 1, 2, func(int) time.Duration { return time.Minute })
			if err != nil {
				t.Errorf("escalate %d: %v", i, err)
				return
			}
			ordinals[i] = ordinal
		}(i)
	}
	wg.Wait()

	if !(ordinals[0] == 1 && ordinals[1] == 2) && !(ordinals[0] == 2 && ordinals[1] == 1) {
		t.Fatalf("ordinals = %v, want {1,2} in some order", ordinals)
	}
}

func TestLiftRestrictionKeepsCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	for i := 0; i < 2; i++ {
		if _, _, err := client.Escalate(ctx, 1, 2, func(int) time.Duration { return time.Hour }); err != nil {
			t.Fatalf("escalate %d: %v", i, err)
		}
	}

	lifted, err := client.LiftRestriction(ctx, 1, 2)
	if err != nil {
		t.Fatalf("lift: %v", err)
	}
	if !lifted {
		t.Fatalf("expected lift to report an affected record")
	}

	record, err := client.GetViolation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get violation: %v", err)
	}
	if record.RestrictedUntil != nil {
		t.Fatalf("restriction still set after lift: %+v", record)
	}
	if record.Count != 2 {
		t.Fatalf("count after lift = %d, want 2", record.Count)
	}

	lifted, err = client.LiftRestriction(ctx, 9, 9)
	if err != nil {
		t.Fatalf("lift unknown: %v", err)
	}
	if lifted {
		t.Fatalf("lift of unknown user should report false")
	}
}

func TestPardonDeletesRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	if _, _, err := client.Escalate(ctx, 1, 2, func(int) time.Duration { return time.Hour }); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	pardoned, err := client.Pardon(ctx, 1, 2)
	if err != nil {
		t.Fatalf("pardon: %v", err)
	}
	if !pardoned {
		t.Fatalf("expected pardon to report an affected record")
	}

	record, err := client.GetViolation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get violation: %v", err)
	}
	if record != nil {
		t.Fatalf("record survived pardon: %+v", record)
	}

	pardoned, err = client.Pardon(ctx, 1, 2)
	if err != nil {
		t.Fatalf("second pardon: %v", err)
	}
	if pardoned {
		t.Fatalf("second pardon should report false")
	}
}

func TestTopOffendersOrderingAndExemptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	escalations := map[int64]int{101: 3, 102: 1, 103: 5, 104: 2}
	// Insert in userID order so ties, if any, stay deterministic.
	for _, userID := range []int64{101, 102, 103, 104} {
		for i := 0; i < escalations[userID]; i++ {
			if _, _, err := client.Escalate(ctx, 1, userID, func(int) time.Duration { return time.Minute }); err != nil {
				t.Fatalf("escalate user %d: %v", userID, err)
			}
		}
	}
	if err := client.GrantExemption(ctx, 1, 104, 1); err != nil {
		t.Fatalf("grant exemption: %v", err)
	}

	offenders, err := client.TopOffenders(ctx, 1, 3)
	if err != nil {
		t.Fatalf("top offenders: %v", err)
	}
	if len(offenders) != 3 {
		t.Fatalf("got %d offenders, want 3", len(offenders))
	}
	wantOrder := []int64{103, 101, 102}
	for i, want := range wantOrder {
		if offenders[i].UserID != want {
			t.Fatalf("offenders = %+v, want user order %v", offenders, wantOrder)
		}
	}
	if offenders[0].Count != 5 {
		t.Fatalf("top count = %d, want 5", offenders[0].Count)
	}
}
