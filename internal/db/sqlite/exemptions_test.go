package sqlite

import (
	"context"
	"testing"
)

func TestExemptionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	exempt, err := client.IsExempt(ctx, 1, 2)
	if err != nil {
		t.Fatalf("is exempt: %v", err)
	}
	if exempt {
		t.Fatalf("unknown user reported exempt")
	}

	if err := client.GrantExemption(ctx, 1, 2, 99); err != nil {
		t.Fatalf("grant: %v", err)
	}
	// Re-granting is a no-op, not an error.
	if err := client.GrantExemption(ctx, 1, 2, 100); err != nil {
		t.Fatalf("second grant: %v", err)
	}

	exempt, err = client.IsExempt(ctx, 1, 2)
	if err != nil {
		t.Fatalf("is exempt: %v", err)
	}
	if !exempt {
		t.Fatalf("granted user not exempt")
	}

	// Exemption is scoped to the chat.
	exempt, err = client.IsExempt(ctx, 9, 2)
	if err != nil {
		t.Fatalf("is exempt other chat: %v", err)
	}
	if exempt {
		t.Fatalf("exemption leaked into another chat")
	}

	revoked, err := client.RevokeExemption(ctx, 1, 2)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !revoked {
		t.Fatalf("expected revoke to report an affected row")
	}

	revoked, err = client.RevokeExemption(ctx, 1, 2)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if revoked {
		t.Fatalf("second revoke should report false")
	}
}
