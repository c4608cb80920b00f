// Package render turns normalized events into Telegram-HTML notification
// text. Everything here is pure: no network, no mutable state, so the
// formatter is trivially testable.
package render

import (
	"strconv"
	"strings"
	"time"

	"castfeed/internal/hook"
	"castfeed/internal/identity"
	"castfeed/pkg/tghtml"
)

const (
	// castTextMax bounds quoted cast bodies.
	castTextMax = 300

	profileURLBase = "https://warpcast.com/~/profiles/"
	castURLBase    = "https://warpcast.com/~/conversations/"
)

// displayZone is the operator's fixed display timezone (UTC+7).
var displayZone = time.FixedZone("UTC+7", 7*60*60)

// Stamp renders a unix-millis timestamp as DD/MM HH:MM in the display zone.
func Stamp(ms int64) string {
	return time.UnixMilli(ms).In(displayZone).Format("02/01 15:04")
}

func stampLine(ms int64) tghtml.H {
	return tghtml.H("🕒 " + Stamp(ms))
}

// mention renders a linked identity. Payload-supplied names win over
// resolved snapshot names; a bare id link is the last resort.
func mention(fid int64, payloadName string, p identity.Profile) tghtml.H {
	name := payloadName
	if name == "" {
		name = p.BestName()
	}
	if name == "" {
		name = "id:" + strconv.FormatInt(fid, 10)
	}
	if fid <= 0 {
		return tghtml.B(name)
	}
	return tghtml.Link(name, profileURLBase+strconv.FormatInt(fid, 10))
}

// Follow renders a follow/unfollow notification.
func Follow(ev *hook.FollowEvent, actor, target identity.Profile) string {
	verb := "FOLLOWED"
	if ev.Unfollow {
		verb = "UNFOLLOWED"
	}
	head := tghtml.JoinH(" ",
		tghtml.H("👤"),
		mention(ev.ActorFID, ev.ActorName, actor),
		tghtml.B(verb),
		mention(ev.TargetFID, ev.TargetName, target),
	)
	return joinLines(head, stampLine(ev.Timestamp))
}

// ProfileUpdate renders an update header plus pre-computed change lines.
// The lines are already HTML-safe (the diff engine escapes values).
func ProfileUpdate(ev *hook.ProfileUpdateEvent, current identity.Profile, lines []string) string {
	head := tghtml.JoinH(" ",
		tghtml.H("📝"),
		mention(ev.FID, ev.Username, current),
		tghtml.B("UPDATED PROFILE"),
	)
	parts := make([]tghtml.H, 0, len(lines)+2)
	parts = append(parts, head)
	for _, l := range lines {
		parts = append(parts, tghtml.Raw(l))
	}
	parts = append(parts, stampLine(ev.Timestamp))
	return joinLines(parts...)
}

// Cast renders a root cast with its quoted body and reference links.
func Cast(ev *hook.CastEvent, author identity.Profile) string {
	head := tghtml.JoinH(" ",
		tghtml.H("💬"),
		mention(ev.AuthorFID, ev.AuthorName, author),
		tghtml.B("CASTED"),
	)

	parts := []tghtml.H{head}
	if ev.Text != "" {
		body := tghtml.Esc(tghtml.TruncRunes(ev.Text, castTextMax))
		parts = append(parts, "“"+body+"”")
	}

	var refs []tghtml.H
	if ev.Hash != "" {
		refs = append(refs, tghtml.Link("cast", castURLBase+ev.Hash))
	}
	if ev.ChannelURL != "" {
		refs = append(refs, tghtml.Link("channel", ev.ChannelURL))
	}
	if len(refs) > 0 {
		parts = append(parts, "🔗 "+tghtml.JoinH(" · ", refs...))
	}

	parts = append(parts, stampLine(ev.Timestamp))
	return joinLines(parts...)
}

// Trade renders a trade notification.
func Trade(ev *hook.TradeEvent, trader identity.Profile) string {
	head := tghtml.JoinH(" ",
		tghtml.H("💱"),
		mention(ev.TraderFID, ev.TraderName, trader),
		tghtml.B("TRADED"),
	)

	var detail []string
	if ev.AmountUSD > 0 {
		detail = append(detail, "$"+formatUSD(ev.AmountUSD))
	}
	if ev.TokenOut != "" || ev.TokenIn != "" {
		pair := strings.TrimSpace(ev.TokenOut) + " → " + strings.TrimSpace(ev.TokenIn)
		detail = append(detail, strings.TrimSpace(pair))
	}
	if ev.Chain != "" {
		detail = append(detail, "["+ev.Chain+"]")
	}

	parts := []tghtml.H{head}
	if len(detail) > 0 {
		parts = append(parts, tghtml.Esc(strings.Join(detail, " ")))
	}
	if ev.TxHash != "" {
		parts = append(parts, "🔗 "+tghtml.Code(ev.TxHash))
	}
	parts = append(parts, stampLine(ev.Timestamp))
	return joinLines(parts...)
}

func formatUSD(v float64) string {
	if v >= 100 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func joinLines(parts ...tghtml.H) string {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return strings.Join(ss, "\n")
}
