package banner

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/envwarn/pkg/logging"
)

// Deduper passes a URL only when it differs from the previous one passed.
// It is safe for concurrent use, so several observers of one page can share
// it.
type Deduper struct {
	mu   sync.Mutex
	last string
	seen bool
}

// Changed records url and reports whether it differs from the last URL
// recorded.
func (d *Deduper) Changed(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen && d.last == url {
		return false
	}
	d.last = url
	d.seen = true
	return true
}

// URLFunc returns the URL currently shown by a context.
type URLFunc func(ctx context.Context) (string, error)

// PollingSource samples a URL at a fixed interval and emits it when it
// changes. It catches in-page navigation that fires no navigation event.
type PollingSource struct {
	get      URLFunc
	interval time.Duration
	dedup    *Deduper
	trigger  <-chan struct{}
	logger   *logging.Logger
}

// NewPollingSource creates a source polling get every interval. Passing a
// shared Deduper suppresses URLs already emitted by another source.
func NewPollingSource(get URLFunc, interval time.Duration, dedup *Deduper, logger *logging.Logger) *PollingSource {
	if dedup == nil {
		dedup = &Deduper{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PollingSource{
		get:      get,
		interval: interval,
		dedup:    dedup,
		logger:   logger,
	}
}

// WithTrigger makes the source also sample whenever trigger fires, so an
// event-driven observer can request an immediate check.
func (p *PollingSource) WithTrigger(trigger <-chan struct{}) *PollingSource {
	p.trigger = trigger
	return p
}

// Run polls until ctx is done. The first successful sample is always
// emitted. Failed samples are skipped.
func (p *PollingSource) Run(ctx context.Context, out chan<- string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.sample(ctx, out)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		}
	}
}

func (p *PollingSource) sample(ctx context.Context, out chan<- string) {
	url, err := p.get(ctx)
	if err != nil {
		p.logger.Debugf("url poll failed: %v", err)
		return
	}
	if !p.dedup.Changed(url) {
		return
	}

	select {
	case out <- url:
	case <-ctx.Done():
	}
}
