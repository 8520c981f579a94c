package docnum

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestForOrderFormat(t *testing.T) {
	at := time.Date(2024, time.March, 5, 23, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^(INV|PUR)\d{8}[A-Z0-9]{6}$`)

	for _, prefix := range []string{"INV", "PUR"} {
		got := ForOrder(prefix, at)
		if !pattern.MatchString(got) {
			t.Fatalf("ForOrder(%q) = %q, does not match expected shape", prefix, got)
		}
		if !strings.HasPrefix(got, prefix+"20240305") {
			t.Fatalf("ForOrder(%q) = %q, want prefix %q", prefix, got, prefix+"20240305")
		}
	}
}

func TestForOrderUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	at := time.Date(2024, time.March, 6, 2, 0, 0, 0, loc)
	got := ForOrder("INV", at)
	if !strings.HasPrefix(got, "INV20240305") {
		t.Fatalf("ForOrder with zoned time = %q, want the UTC date 20240305", got)
	}
}

func TestForOrderTokensVary(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[ForOrder("INV", at)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varying tokens, got %d distinct values in 50 draws", len(seen))
	}
}

func TestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := ID("sale")
		if !strings.HasPrefix(id, "sale-") {
			t.Fatalf("ID = %q, want sale- prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
