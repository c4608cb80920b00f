// Package stats logs a periodic summary of the in-memory pipeline stores.
// Counters live in /metrics; this job exists for operators tailing logs.
package stats

import (
	"time"

	"github.com/robfig/cron/v3"

	"castfeed/internal/hook"
	"castfeed/internal/profile"
	"castfeed/pkg/logx"
)

type Reporter struct {
	cron  *cron.Cron
	dedup *hook.Deduper
	cache *profile.Cache
	last  *profile.LastKnown
	log   logx.Logger

	started time.Time
}

func New(dedup *hook.Deduper, cache *profile.Cache, last *profile.LastKnown, log logx.Logger) *Reporter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reporter{dedup: dedup, cache: cache, last: last, log: log}
}

func (r *Reporter) Start() error {
	if r.cron != nil {
		return nil
	}
	r.started = time.Now()
	c := cron.New()
	if _, err := c.AddFunc("@hourly", r.report); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	return nil
}

func (r *Reporter) Stop() {
	if r.cron == nil {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.cron = nil
}

func (r *Reporter) report() {
	r.log.Info("pipeline stats",
		logx.Duration("uptime", time.Since(r.started).Round(time.Second)),
		logx.Int("dedup_window", r.dedup.Len()),
		logx.Int("profile_cache", r.cache.Len()),
		logx.Int("last_known", r.last.Len()),
	)
}
