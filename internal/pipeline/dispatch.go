package pipeline

import (
	"context"

	kit "castfeed/internal/transport"
	"castfeed/pkg/logx"
	"castfeed/pkg/tghtml"
)

// Event categories for channel routing and metrics labels.
const (
	CategoryFollow   = "follow"
	CategoryActivity = "activity"
	CategoryTrade    = "trade"
)

// target resolves a category to a chat. Activity and trades default to the
// follow-graph channel when unset; a zero chat id means "not configured".
func (p *Pipeline) target(category string) kit.ChatTarget {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch category {
	case CategoryActivity:
		if p.channels.Activity.ChatID != 0 {
			return p.channels.Activity
		}
	case CategoryTrade:
		if p.channels.Trades.ChatID != 0 {
			return p.channels.Trades
		}
	case CategoryFollow:
	}
	return p.channels.Follows
}

// dispatch routes formatted text to the category's channel. An unconfigured
// channel makes the send a silent no-op (partial configuration is
// supported), not an error.
func (p *Pipeline) dispatch(ctx context.Context, category, text string) Outcome {
	to := p.target(category)
	if to.ChatID == 0 {
		p.met.Skipped.WithLabelValues("no_channel").Inc()
		p.log.Debug("no channel configured; notification dropped", logx.String("category", category))
		return OutcomeSkipped
	}

	n := kit.Notification{
		Category: category,
		Target:   to,
		Text:     text,
		Options:  &kit.SendOptions{ParseMode: "HTML", DisablePreview: true},
	}
	if err := p.notify.Enqueue(ctx, n); err != nil {
		// Queue pressure or shutdown: absorbed, the provider still gets 200.
		p.met.Skipped.WithLabelValues("queue_full").Inc()
		p.log.Warn("notification enqueue failed", logx.Err(err), logx.String("category", category))
		return OutcomeSkipped
	}
	p.met.Dispatched.WithLabelValues(category).Inc()
	return OutcomeDispatched
}

// skipWithDiagnostic drops an event whose required identifiers could not be
// extracted, but still tells the operators about it on the category channel.
func (p *Pipeline) skipWithDiagnostic(ctx context.Context, category, eventID, reason string) Outcome {
	p.met.Skipped.WithLabelValues("unresolved_ids").Inc()
	p.log.Warn("event skipped", logx.String("event_id", eventID), logx.String("reason", reason))

	text := "⚠️ " + tghtml.B("EVENT SKIPPED").String() + "\n" +
		tghtml.Esc(reason).String()
	if eventID != "" {
		text += "\n" + tghtml.Code(eventID).String()
	}
	_ = p.dispatch(ctx, category, text)
	return OutcomeSkipped
}
