package profile

import (
	"context"
	"strings"
	"testing"
	"time"

	"castfeed/internal/hook"
	"castfeed/internal/identity"
	"castfeed/pkg/logx"
)

func newTestEngine(fetch Fetcher) (*Engine, *LastKnown) {
	last := NewLastKnown()
	cache := NewCache(fetch, time.Minute, 16, logx.Nop())
	return NewEngine(cache, last, logx.Nop()), last
}

func TestResolvePayloadTier(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	eng, _ := newTestEngine(fetch)

	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:    3,
		Before: &identity.Profile{Bio: "a"},
		After:  &identity.Profile{Bio: "b"},
	})

	if res.OldSource != SourcePayload || res.NewSource != SourcePayload {
		t.Fatalf("sources = (%v,%v), want payload tier for both", res.OldSource, res.NewSource)
	}
	if fetch.calls() != 0 {
		t.Fatal("payload tier must not hit the lookup service")
	}
	if len(res.Lines) != 1 || res.Lines[0] != "BIO: a → b" {
		t.Fatalf("Lines = %v", res.Lines)
	}
}

func TestResolveLastKnownTier(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	eng, last := newTestEngine(fetch)
	last.Put(3, identity.Profile{FID: 3, Bio: "old"})

	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:   3,
		After: &identity.Profile{Bio: "new"},
	})

	if res.OldSource != SourceLastKnown {
		t.Fatalf("OldSource = %v, want last_known", res.OldSource)
	}
	if len(res.Lines) != 1 || res.Lines[0] != "BIO: old → new" {
		t.Fatalf("Lines = %v", res.Lines)
	}
}

func TestResolveFetchedTier(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{known: map[int64]identity.Profile{
		3: {FID: 3, Username: "alice", Bio: "fresh"},
	}}
	eng, _ := newTestEngine(fetch)

	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:    3,
		Before: &identity.Profile{Username: "alice", Bio: "stale"},
	})

	if res.NewSource != SourceFetched {
		t.Fatalf("NewSource = %v, want fetched", res.NewSource)
	}
	if fetch.calls() != 1 {
		t.Fatalf("LookupUsers calls = %d, want 1", fetch.calls())
	}
	if len(res.Lines) != 1 || res.Lines[0] != "BIO: stale → fresh" {
		t.Fatalf("Lines = %v", res.Lines)
	}
}

func TestResolveplaceholderLine(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	eng, _ := newTestEngine(fetch)

	// Identical before/after yields no field lines, so the generic line
	// stands in.
	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:    3,
		Before: &identity.Profile{Bio: "same"},
		After:  &identity.Profile{Bio: "same"},
	})
	if len(res.Lines) != 1 || res.Lines[0] != "profile data changed" {
		t.Fatalf("Lines = %v, want the generic line", res.Lines)
	}
}

func TestResolveNamesOnlyMode(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{known: map[int64]identity.Profile{
		3: {FID: 3, Username: "alice", Bio: "hi", AvatarURL: "https://x/pfp.png"},
	}}
	eng, _ := newTestEngine(fetch)

	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:           3,
		UpdatedFields: []string{"bio", "pfp_url", "unknown_field"},
	})

	want := []string{"BIO: hi", "AVATARREF: https://x/pfp.png"}
	if len(res.Lines) != len(want) {
		t.Fatalf("Lines = %v, want %v", res.Lines, want)
	}
	for i := range want {
		if res.Lines[i] != want[i] {
			t.Fatalf("Lines[%d] = %q, want %q", i, res.Lines[i], want[i])
		}
	}
}

func TestResolveUpdatesLastKnown(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	eng, last := newTestEngine(fetch)

	eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:    3,
		Before: &identity.Profile{Bio: "same"},
		After:  &identity.Profile{Bio: "same"},
	})

	// Overwritten even when nothing changed, so the next diff has an
	// accurate baseline.
	p, ok := last.Get(3)
	if !ok || p.Bio != "same" {
		t.Fatalf("last known = (%+v,%v)", p, ok)
	}
}

func TestChangeLinesEscapeAndTruncate(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	eng, _ := newTestEngine(fetch)

	long := strings.Repeat("x", 200)
	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:    3,
		Before: &identity.Profile{Bio: "<b>old</b>"},
		After:  &identity.Profile{Bio: long},
	})

	line := res.Lines[0]
	if !strings.Contains(line, "&lt;b&gt;old&lt;/b&gt;") {
		t.Fatalf("old value not escaped: %q", line)
	}
	if !strings.Contains(line, strings.Repeat("x", 159)+"…") {
		t.Fatalf("new value not truncated to 160 runes: %q", line)
	}
	if strings.Contains(line, strings.Repeat("x", 161)) {
		t.Fatalf("new value exceeds 160 runes: %q", line)
	}
}

func TestChangeLinesEmptyMarkers(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	eng, _ := newTestEngine(fetch)

	res := eng.Resolve(context.Background(), &hook.ProfileUpdateEvent{
		FID:    3,
		Before: &identity.Profile{Location: "Lisbon"},
		After:  &identity.Profile{Website: "https://a.example"},
	})

	joined := strings.Join(res.Lines, "\n")
	if !strings.Contains(joined, "LOCATION: Lisbon → (empty)") {
		t.Fatalf("missing cleared-field line: %q", joined)
	}
	if !strings.Contains(joined, "WEBSITE: (empty) → https://a.example") {
		t.Fatalf("missing added-field line: %q", joined)
	}
}
