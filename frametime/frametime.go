// Package frametime paces a render loop against a target frame rate and
// a separate, typically slower, host-event poll rate.
package frametime

import "time"

// Config controls a Pacer's tickers.
type Config struct {
	// FramesPerSecond caps how often Pacer's frame ticker fires. 0 means
	// unlimited (the ticker fires as fast as the runtime allows).
	FramesPerSecond int

	// EventPollIntervalMS is how often the event ticker fires, for
	// polling host window events independently of frame pacing.
	EventPollIntervalMS int
}

// NewPacer creates a Pacer with its tickers already running.
func NewPacer(cfg Config) *Pacer {
	interval := time.Nanosecond
	if cfg.FramesPerSecond > 0 {
		interval = time.Second / time.Duration(cfg.FramesPerSecond)
	}
	pollInterval := time.Duration(cfg.EventPollIntervalMS) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}

	return &Pacer{
		fps:         cfg.FramesPerSecond,
		frameTicker: time.NewTicker(interval),
		eventTicker: time.NewTicker(pollInterval),
	}
}

// Pacer owns the two tickers a main loop selects on: one gating frame
// submission, one gating event polling.
type Pacer struct {
	fps         int
	frameTicker *time.Ticker
	eventTicker *time.Ticker
}

// FramesPerSecond reports the configured cap (0 if unlimited).
func (p *Pacer) FramesPerSecond() int { return p.fps }

// FrameTick returns the channel that fires once per paced frame.
func (p *Pacer) FrameTick() <-chan time.Time { return p.frameTicker.C }

// EventTick returns the channel that fires once per event poll.
func (p *Pacer) EventTick() <-chan time.Time { return p.eventTicker.C }

// Stop releases both tickers. Call once when the main loop exits.
func (p *Pacer) Stop() {
	p.frameTicker.Stop()
	p.eventTicker.Stop()
}
