package profile

import (
	"context"
	"fmt"
	"strings"

	"castfeed/internal/hook"
	"castfeed/internal/identity"
	"castfeed/pkg/logx"
	"castfeed/pkg/tghtml"
)

// Source tags which tier supplied a snapshot during diff resolution, so
// tests (and logs) can force and observe each path independently.
type Source int

const (
	SourceNone Source = iota
	SourcePayload
	SourceLastKnown
	SourceFetched
)

func (s Source) String() string {
	switch s {
	case SourcePayload:
		return "payload"
	case SourceLastKnown:
		return "last_known"
	case SourceFetched:
		return "fetched"
	default:
		return "none"
	}
}

// canonicalFields is the fixed field set the diff runs over. A field is only
// ever compared against itself under this one name, regardless of what the
// provider called it in the payload.
var canonicalFields = []struct {
	name string
	get  func(identity.Profile) string
}{
	{"name", func(p identity.Profile) string { return p.Username }},
	{"displayName", func(p identity.Profile) string { return p.DisplayName }},
	{"bio", func(p identity.Profile) string { return p.Bio }},
	{"avatarRef", func(p identity.Profile) string { return p.AvatarURL }},
	{"location", func(p identity.Profile) string { return p.Location }},
	{"website", func(p identity.Profile) string { return p.Website }},
}

// fieldAliases maps provider spellings in changed-field lists onto the
// canonical set.
var fieldAliases = map[string]string{
	"name":         "name",
	"username":     "name",
	"displayname":  "displayName",
	"display_name": "displayName",
	"bio":          "bio",
	"avatarref":    "avatarRef",
	"avatar":       "avatarRef",
	"pfp":          "avatarRef",
	"pfp_url":      "avatarRef",
	"location":     "location",
	"website":      "website",
	"url":          "website",
}

const diffValueMax = 160

// placeholderLine is emitted when no per-field change line could be
// produced by any resolution path.
const placeholderLine = "profile data changed"

// Engine resolves before/after snapshots for profile update events and
// computes field-level change lines.
type Engine struct {
	cache *Cache
	last  *LastKnown
	log   logx.Logger
}

func NewEngine(cache *Cache, last *LastKnown, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{cache: cache, last: last, log: log}
}

// Result is a fully resolved diff.
type Result struct {
	Old, New             identity.Profile
	OldSource, NewSource Source
	// Lines are HTML-safe change lines, never empty.
	Lines []string
}

// Resolve applies the three-tier strategy:
//
//  1. payload-embedded before/after objects win when present
//  2. a missing "before" falls back to the last-known snapshot
//  3. a missing "after" falls back to a fresh cache resolution
//
// After resolution the last-known baseline is overwritten with the new
// snapshot whether or not any change was detected, so the next update event
// diffs against an accurate baseline.
func (e *Engine) Resolve(ctx context.Context, ev *hook.ProfileUpdateEvent) Result {
	var res Result

	if ev.Before != nil {
		res.Old = *ev.Before
		res.OldSource = SourcePayload
	} else if p, ok := e.last.Get(ev.FID); ok {
		res.Old = p
		res.OldSource = SourceLastKnown
	}

	if ev.After != nil {
		res.New = *ev.After
		res.NewSource = SourcePayload
	} else if ev.FID > 0 {
		res.New = e.cache.ResolveOne(ctx, ev.FID)
		res.NewSource = SourceFetched
	}

	if ev.Before == nil && ev.After == nil && len(ev.UpdatedFields) > 0 {
		res.Lines = namesOnlyLines(ev.UpdatedFields, res.New)
	} else {
		res.Lines = changeLines(res.Old, res.New)
	}
	if len(res.Lines) == 0 {
		res.Lines = []string{placeholderLine}
	}

	if ev.FID > 0 && res.NewSource != SourceNone {
		e.last.Put(ev.FID, res.New)
	}

	e.log.Debug("profile diff resolved",
		logx.Int64("fid", ev.FID),
		logx.String("old_source", res.OldSource.String()),
		logx.String("new_source", res.NewSource.String()),
		logx.Int("lines", len(res.Lines)),
	)
	return res
}

// changeLines emits one line per canonical field whose value changed.
func changeLines(old, new identity.Profile) []string {
	var lines []string
	for _, f := range canonicalFields {
		ov := f.get(old)
		nv := f.get(new)
		if ov == nv {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s → %s",
			strings.ToUpper(f.name), diffValue(ov), diffValue(nv)))
	}
	return lines
}

// namesOnlyLines handles payloads that report changed field names with no
// before/after structure: each named field shows only its current value.
func namesOnlyLines(names []string, current identity.Profile) []string {
	var lines []string
	for _, raw := range names {
		canon, ok := fieldAliases[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			continue
		}
		for _, f := range canonicalFields {
			if f.name != canon {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s",
				strings.ToUpper(f.name), diffValue(f.get(current))))
			break
		}
	}
	return lines
}

func diffValue(v string) string {
	if v == "" {
		return "(empty)"
	}
	return tghtml.Esc(tghtml.TruncRunes(v, diffValueMax)).String()
}
