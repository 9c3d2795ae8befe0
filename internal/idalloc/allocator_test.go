package idalloc

import (
	"errors"
	"math"
	"net"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns the values in ticks one by one and then keeps repeating
// the last one.
type stepClock struct {
	mu    sync.Mutex
	ticks []int64
	i     int
}

func (c *stepClock) now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.ticks[c.i]
	if c.i < len(c.ticks)-1 {
		c.i++
	}
	return v
}

func TestNew_MachineIDValidation(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		wantErr bool
	}{
		{name: "lower bound", id: 0},
		{name: "upper bound", id: MaxMachineID},
		{name: "negative", id: -1, wantErr: true},
		{name: "too large", id: MaxMachineID + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(WithMachineID(tt.id))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrorConfiguration))
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, a.MachineID())
		})
	}
}

func TestNext_PacksTimestampMachineAndSequence(t *testing.T) {
	clock := &stepClock{ticks: []int64{Epoch + 1}}
	a, err := New(WithMachineID(3), WithClock(clock.now))
	require.NoError(t, err)

	first, err := a.Next()
	require.NoError(t, err)
	second, err := a.Next()
	require.NoError(t, err)

	raw := int64(1)<<timestampShift | int64(3)<<machineIDShift
	assert.Equal(t, MinID+raw, first)
	assert.Equal(t, MinID+raw+1, second)
}

func TestNext_ClockRegression(t *testing.T) {
	clock := &stepClock{ticks: []int64{Epoch + 1000, Epoch + 999, Epoch + 1000}}
	a, err := New(WithMachineID(1), WithClock(clock.now))
	require.NoError(t, err)

	_, err = a.Next()
	require.NoError(t, err)

	_, err = a.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorClockRegression))

	// the failed call leaves state untouched, the clock catching up recovers
	id, err := a.Next()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, MinID)
}

func TestNext_SpinsWhenSequenceExhausted(t *testing.T) {
	const ts = Epoch + 5000

	// maxSequence+2 calls at ts fill the sequence and trigger the wrap,
	// one more sample inside the spin still sees ts, then the clock advances.
	ticks := make([]int64, 0, maxSequence+4)
	for i := 0; i < maxSequence+3; i++ {
		ticks = append(ticks, ts)
	}
	ticks = append(ticks, ts+1)

	clock := &stepClock{ticks: ticks}
	a, err := New(WithMachineID(7), WithClock(clock.now))
	require.NoError(t, err)

	seen := make(map[int64]struct{}, maxSequence+2)
	for i := 0; i <= maxSequence; i++ {
		id, err := a.Next()
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, maxSequence+1)

	id, err := a.Next()
	require.NoError(t, err)

	raw := int64(ts+1-Epoch)<<timestampShift | int64(7)<<machineIDShift
	assert.Equal(t, MinID+raw, id)
	assert.NotContains(t, seen, id)
	assert.Equal(t, int64(ts+1), a.lastTimestamp)
	assert.Equal(t, int64(0), a.sequence)
}

func TestNext_ConcurrentUniqueAndInRange(t *testing.T) {
	const (
		workers   = 8
		perWorker = 12_500
	)

	a, err := New(WithMachineID(5))
	require.NoError(t, err)

	results := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				id, err := a.Next()
				if err != nil {
					t.Errorf("Next: %v", err)
					return
				}
				ids = append(ids, id)
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	seen := make(map[int64]struct{}, workers*perWorker)
	for _, ids := range results {
		for _, id := range ids {
			require.GreaterOrEqual(t, id, MinID)
			require.LessOrEqual(t, id, MaxID)
			_, dup := seen[id]
			require.False(t, dup, "duplicate id %d", id)
			seen[id] = struct{}{}
		}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestFold_StaysInRange(t *testing.T) {
	tests := []struct {
		name string
		raw  int64
		want int64
	}{
		{name: "zero", raw: 0, want: MinID},
		{name: "small", raw: 42, want: MinID + 42},
		{name: "negative", raw: -5, want: MinID + 5},
		{name: "exact range", raw: foldRange, want: MinID},
		{name: "one below range", raw: foldRange - 1, want: MaxID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fold(tt.raw))
		})
	}

	for _, raw := range []int64{math.MinInt64, math.MaxInt64, math.MinInt64 + 1} {
		got := fold(raw)
		assert.GreaterOrEqual(t, got, MinID)
		assert.LessOrEqual(t, got, MaxID)
	}
}

func TestDeriveMachineID(t *testing.T) {
	host := func() (string, error) { return "10.1.2.3", nil }

	first := DeriveMachineID(host)
	second := DeriveMachineID(host)
	assert.Equal(t, first, second, "same host must map to the same machine id")
	assert.GreaterOrEqual(t, first, int64(0))
	assert.LessOrEqual(t, first, int64(MaxMachineID))

	failing := func() (string, error) { return "", errors.New("no network") }
	for i := 0; i < 100; i++ {
		id := DeriveMachineID(failing)
		require.GreaterOrEqual(t, id, int64(0))
		require.LessOrEqual(t, id, int64(MaxMachineID))
	}

	id := DeriveMachineID(nil)
	assert.LessOrEqual(t, id, int64(MaxMachineID))
}

func TestNew_DerivesMachineIDFromHost(t *testing.T) {
	host := func() (string, error) { return "node-a", nil }
	a, err := New(WithHostIdentity(host))
	require.NoError(t, err)
	assert.Equal(t, DeriveMachineID(host), a.MachineID())
}

func TestLocalHostIdentity(t *testing.T) {
	origAddrs, origHost := interfaceAddrs, hostname
	t.Cleanup(func() { interfaceAddrs, hostname = origAddrs, origHost })

	t.Run("first non-loopback address", func(t *testing.T) {
		interfaceAddrs = func() ([]net.Addr, error) {
			return []net.Addr{
				&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
				&net.IPNet{IP: net.ParseIP("10.0.0.5"), Mask: net.CIDRMask(24, 32)},
			}, nil
		}
		hostname = func() (string, error) { return "ignored", nil }

		got, err := LocalHostIdentity()
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.5", got)
	})

	t.Run("falls back to hostname", func(t *testing.T) {
		interfaceAddrs = func() ([]net.Addr, error) { return nil, errors.New("boom") }
		hostname = func() (string, error) { return "node-b", nil }

		got, err := LocalHostIdentity()
		require.NoError(t, err)
		assert.Equal(t, "node-b", got)
	})

	t.Run("nothing available", func(t *testing.T) {
		interfaceAddrs = func() ([]net.Addr, error) { return nil, nil }
		hostname = func() (string, error) { return "", nil }

		_, err := LocalHostIdentity()
		require.Error(t, err)
	})
}
