// Package pipeline wires the webhook processing chain:
// verify → parse → dedup → normalize → enrich → format → dispatch.
package pipeline

import (
	"context"
	"sync"
	"time"

	"castfeed/internal/hook"
	"castfeed/internal/metrics"
	"castfeed/internal/notify"
	"castfeed/internal/profile"
	"castfeed/internal/render"
	kit "castfeed/internal/transport"
	"castfeed/pkg/logx"
)

// Outcome classifies one webhook delivery for the HTTP layer. Everything
// except OutcomeUnauthorized maps to 200 "ok": soft skips are part of the
// contract, and collaborator failures never surface to the provider.
type Outcome int

const (
	OutcomeDispatched Outcome = iota
	OutcomeUnauthorized
	OutcomeMalformed
	OutcomeDuplicate
	OutcomeUnknownType
	OutcomeSkipped
)

// Channels are the routing targets per event category. Activity and Trades
// fall back to Follows when their chat id is 0.
type Channels struct {
	Follows  kit.ChatTarget
	Activity kit.ChatTarget
	Trades   kit.ChatTarget
}

type Pipeline struct {
	// mu guards the hot-reloadable knobs (secret, channels).
	mu       sync.RWMutex
	secret   string
	channels Channels

	dedup  *hook.Deduper
	cache  *profile.Cache
	diff   *profile.Engine
	notify *notify.Service
	met    *metrics.Metrics
	log    logx.Logger

	now func() time.Time
}

func New(secret string, channels Channels, dedup *hook.Deduper, cache *profile.Cache, diff *profile.Engine, n *notify.Service, met *metrics.Metrics, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{
		secret:   secret,
		channels: channels,
		dedup:    dedup,
		cache:    cache,
		diff:     diff,
		notify:   n,
		met:      met,
		log:      log,
		now:      time.Now,
	}
}

// Apply swaps the hot-reloadable knobs.
func (p *Pipeline) Apply(secret string, channels Channels) {
	p.mu.Lock()
	p.secret = secret
	p.channels = channels
	p.mu.Unlock()
}

// Handle processes one raw webhook delivery end to end.
func (p *Pipeline) Handle(ctx context.Context, body []byte, signature string) Outcome {
	p.met.Received.Inc()

	p.mu.RLock()
	secret := p.secret
	p.mu.RUnlock()

	if !hook.VerifySignature(body, signature, secret) {
		p.met.Unauthorized.Inc()
		p.log.Warn("webhook rejected: bad signature", logx.Int("body_len", len(body)))
		return OutcomeUnauthorized
	}

	env, err := hook.ParseEnvelope(body)
	if err != nil {
		p.met.Malformed.Inc()
		p.log.Warn("webhook body unparseable", logx.Err(err))
		return OutcomeMalformed
	}

	if p.dedup.Seen(env.ID) {
		p.met.Duplicates.Inc()
		p.log.Debug("duplicate delivery suppressed", logx.String("event_id", env.ID))
		return OutcomeDuplicate
	}

	ev, ok := hook.Normalize(env, p.now())
	if !ok {
		p.log.Debug("unknown event type dropped", logx.String("type", env.Type))
		return OutcomeUnknownType
	}
	p.met.Normalized.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case hook.KindFollow:
		return p.handleFollow(ctx, env.ID, ev.Follow)
	case hook.KindProfileUpdate:
		return p.handleProfileUpdate(ctx, env.ID, ev.Profile)
	case hook.KindCast:
		return p.handleCast(ctx, env.ID, ev.Cast)
	case hook.KindTrade:
		return p.handleTrade(ctx, env.ID, ev.Trade)
	default:
		return OutcomeUnknownType
	}
}

func (p *Pipeline) handleFollow(ctx context.Context, eventID string, ev *hook.FollowEvent) Outcome {
	if ev.ActorFID <= 0 && ev.TargetFID <= 0 {
		return p.skipWithDiagnostic(ctx, CategoryFollow, eventID, "follow event carries no resolvable ids")
	}

	// One batched lookup covers both sides.
	resolved := p.cache.Resolve(ctx, []int64{ev.ActorFID, ev.TargetFID})
	text := render.Follow(ev, resolved[ev.ActorFID], resolved[ev.TargetFID])
	return p.dispatch(ctx, CategoryFollow, text)
}

func (p *Pipeline) handleProfileUpdate(ctx context.Context, eventID string, ev *hook.ProfileUpdateEvent) Outcome {
	if ev.FID <= 0 {
		return p.skipWithDiagnostic(ctx, CategoryActivity, eventID, "profile update carries no resolvable id")
	}

	res := p.diff.Resolve(ctx, ev)
	text := render.ProfileUpdate(ev, res.New, res.Lines)
	return p.dispatch(ctx, CategoryActivity, text)
}

func (p *Pipeline) handleCast(ctx context.Context, eventID string, ev *hook.CastEvent) Outcome {
	if !ev.Root {
		// Replies/quotes are deliberately quiet; only root casts notify.
		p.met.Skipped.WithLabelValues("non_root_cast").Inc()
		p.log.Debug("non-root cast skipped", logx.String("event_id", eventID))
		return OutcomeSkipped
	}
	if ev.AuthorFID <= 0 {
		return p.skipWithDiagnostic(ctx, CategoryActivity, eventID, "cast carries no resolvable author id")
	}

	author := p.cache.ResolveOne(ctx, ev.AuthorFID)
	text := render.Cast(ev, author)
	return p.dispatch(ctx, CategoryActivity, text)
}

func (p *Pipeline) handleTrade(ctx context.Context, eventID string, ev *hook.TradeEvent) Outcome {
	if ev.TraderFID <= 0 {
		return p.skipWithDiagnostic(ctx, CategoryTrade, eventID, "trade carries no resolvable trader id")
	}

	trader := p.cache.ResolveOne(ctx, ev.TraderFID)
	text := render.Trade(ev, trader)
	return p.dispatch(ctx, CategoryTrade, text)
}
