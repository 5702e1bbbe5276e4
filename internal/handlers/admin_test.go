package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

func TestRenderPolicy(t *testing.T) {
	t.Parallel()

	policy := db.DefaultChatPolicy(1)
	policy.SetCategoryThreshold(db.CategoryText, 5)
	policy.SetCategoryWindow(db.CategoryText, 45*time.Second)

	rendered := renderPolicy(policy, "en")

	for _, want := range []string{
		"Current limits:",
		"sticker/animation: 3 / 30s",
		"text: 5 / 45s",
		"photo: 3 / 30s",
		"video: 3 / 30s",
		"warn: true",
	} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered policy missing %q:\n%s", want, rendered)
		}
	}
}

func TestRenderBanStats(t *testing.T) {
	t.Parallel()

	stats := &db.BanStats{
		TotalBans:    4,
		ByCategory:   map[db.Category]int{db.CategoryText: 4},
		TopViolators: []db.Offender{{UserID: 101, Count: 3}, {UserID: 102, Count: 1}},
		TotalMinutes: 140,
		PeriodDays:   7,
	}

	rendered := renderBanStats(stats, "en")

	for _, want := range []string{
		"Ban stats for the last 7 days:",
		"total: 4 (140 min)",
		"text: 4",
		"1. id101 - 3",
		"2. id102 - 1",
	} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered stats missing %q:\n%s", want, rendered)
		}
	}
}
