package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wits0/internal/communicator"
	"github.com/banshee-data/wits0/internal/transport"
	"github.com/banshee-data/wits0/internal/wits0"
)

type fakeQuerier struct {
	mu       sync.Mutex
	calls    int
	records  []wits0.LogicalRecord
	err      error
	inFlight int
	overlap  bool
}

func (f *fakeQuerier) ReadEDRData() ([]wits0.LogicalRecord, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.records, f.err
}

func (f *fakeQuerier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoller_PollOnceRecords(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQuerier{records: []wits0.LogicalRecord{frame("1984", "PASON/EDR", "0108", "519.48")}}
	p := NewPoller("rig-7", q, s, time.Second)

	assert.Nil(t, p.Last())

	snap, err := p.PollOnce()
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ExchangeID)
	assert.Same(t, snap, p.Last())

	latest, err := s.Latest("rig-7")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, snap.ExchangeID, latest.ExchangeID)
}

func TestPoller_PollOnceError(t *testing.T) {
	cause := errors.New("device silent")
	p := NewPoller("rig-7", &fakeQuerier{err: cause}, nil, time.Second)

	snap, err := p.PollOnce()
	assert.ErrorIs(t, err, cause)
	require.NotNil(t, snap)
	assert.ErrorIs(t, p.Last().Err, cause)
}

func TestPoller_EmptyReplyNotStored(t *testing.T) {
	s := newTestStore(t)
	p := NewPoller("rig-7", &fakeQuerier{}, s, time.Second)

	snap, err := p.PollOnce()
	require.NoError(t, err)
	assert.Empty(t, snap.ExchangeID)

	latest, err := s.Latest("rig-7")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestPoller_RunUntilCancelled(t *testing.T) {
	q := &fakeQuerier{records: []wits0.LogicalRecord{frame("0108", "1")}}
	p := NewPoller("rig-7", q, nil, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, q.Calls(), 2)
}

func TestPoller_RunRejectsBadInterval(t *testing.T) {
	p := NewPoller("rig-7", &fakeQuerier{}, nil, 0)
	assert.Error(t, p.Run(context.Background()))
}

func TestPoller_SerialisesQueries(t *testing.T) {
	q := &fakeQuerier{}
	p := NewPoller("rig-7", q, nil, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.PollOnce()
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, q.Calls())
	assert.False(t, q.overlap, "queries overlapped")
}

func TestPoller_WithEDR(t *testing.T) {
	port := transport.NewTestableSerialPort()
	port.Reply = []byte("&&\r\n1984PASON/EDR\r\n0108519.48\r\n!!\r\n")
	edr := communicator.NewEDR(transport.NewSerialTransport(port))
	defer edr.Close()

	s := newTestStore(t)
	p := NewPoller("rig-7", edr, s, time.Second)

	snap, err := p.PollOnce()
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, wits0.EDRDataRequest, string(port.GetWrittenData()))

	sum, err := s.Summarize("rig-7", "0108")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	assert.InDelta(t, 519.48, sum.Mean, 1e-9)
}
