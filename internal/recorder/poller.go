package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/wits0/internal/monitoring"
	"github.com/banshee-data/wits0/internal/wits0"
)

// Querier is the device query a Poller drives. communicator.EDR satisfies it.
type Querier interface {
	ReadEDRData() ([]wits0.LogicalRecord, error)
}

// Snapshot is the outcome of the most recent poll.
type Snapshot struct {
	ExchangeID string
	CapturedAt time.Time
	Records    []wits0.LogicalRecord
	Err        error
}

// Poller asks one device for its data set on an interval and records the
// replies. It owns the only path to the Querier and serialises every query,
// including ones triggered from the admin routes.
type Poller struct {
	device   string
	querier  Querier
	store    *Store
	interval time.Duration
	now      func() time.Time

	queryMu sync.Mutex

	lastMu sync.Mutex
	last   *Snapshot
}

// NewPoller creates a Poller. store may be nil, in which case replies are kept
// only as the latest snapshot.
func NewPoller(device string, q Querier, store *Store, interval time.Duration) *Poller {
	return &Poller{
		device:   device,
		querier:  q,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// PollOnce queries the device, records the reply and updates the snapshot.
func (p *Poller) PollOnce() (*Snapshot, error) {
	p.queryMu.Lock()
	defer p.queryMu.Unlock()

	snap := &Snapshot{CapturedAt: p.now()}
	records, err := p.querier.ReadEDRData()
	if err != nil {
		snap.Err = fmt.Errorf("query %s: %w", p.device, err)
		p.setLast(snap)
		return snap, snap.Err
	}
	snap.Records = records

	if p.store != nil && len(records) > 0 {
		id, err := p.store.Record(p.device, snap.CapturedAt, records)
		if err != nil {
			snap.Err = fmt.Errorf("record %s: %w", p.device, err)
			p.setLast(snap)
			return snap, snap.Err
		}
		snap.ExchangeID = id
	}

	monitoring.Tracef("polled %s: %d logical records", p.device, len(records))
	p.setLast(snap)
	return snap, nil
}

// Run polls immediately and then every interval until ctx is done. Poll
// failures are logged and the next tick tries again.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", p.interval)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(); err != nil {
			monitoring.Logf("poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Last returns the most recent snapshot, or nil before the first poll.
func (p *Poller) Last() *Snapshot {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	return p.last
}

func (p *Poller) setLast(s *Snapshot) {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	p.last = s
}
