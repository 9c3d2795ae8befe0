// Package idalloc hands out unique, roughly time-ordered, ten digit account
// identifiers without a central sequence authority.
//
// A raw 64-bit value is packed from the milliseconds elapsed since Epoch,
// a 5-bit machine id and a 12-bit per-millisecond sequence, then folded into
// the window [MinID, MaxID]. The fold is lossy: two raw values that differ by
// a multiple of 9e9 map to the same public id. Raw values advance by 1<<17 per
// millisecond, so ids minted by one allocator within roughly 68 seconds of
// each other cannot collide; beyond that window uniqueness is accepted as an
// approximation and left to the store's primary key.
package idalloc

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

const (
	// Epoch is 2024-01-01T00:00:00Z in Unix milliseconds.
	Epoch int64 = 1704067200000

	machineIDBits = 5
	sequenceBits  = 12

	MaxMachineID = 1<<machineIDBits - 1
	maxSequence  = 1<<sequenceBits - 1

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits

	// MinID and MaxID bound every id returned by Next.
	MinID int64 = 1_000_000_000
	MaxID int64 = 9_999_999_999

	foldRange = MaxID - MinID + 1
)

// Allocator is safe for concurrent use. One Allocator should exist per
// process; instances on different hosts must run with distinct machine ids.
type Allocator struct {
	mu            sync.Mutex
	machineID     int64
	epoch         int64
	lastTimestamp int64
	sequence      int64
	now           func() int64
}

type options struct {
	machineID    int64
	machineIDSet bool
	epoch        int64
	now          func() int64
	hostIdentity func() (string, error)
}

// Option configures an Allocator at construction.
type Option func(*options)

// WithMachineID pins the machine id instead of deriving it from the host.
func WithMachineID(id int64) Option {
	return func(o *options) {
		o.machineID = id
		o.machineIDSet = true
	}
}

// WithClock replaces the wall clock. The function returns Unix milliseconds.
func WithClock(now func() int64) Option {
	return func(o *options) { o.now = now }
}

// WithEpoch overrides the reference instant raw timestamps are measured from.
func WithEpoch(epochMillis int64) Option {
	return func(o *options) { o.epoch = epochMillis }
}

// WithHostIdentity replaces the source of the stable host string the machine
// id is derived from.
func WithHostIdentity(fn func() (string, error)) Option {
	return func(o *options) { o.hostIdentity = fn }
}

func wallClock() int64 {
	return time.Now().UnixMilli()
}

// New builds an Allocator. It fails with common.ErrorConfiguration when an
// explicit machine id lies outside [0, MaxMachineID].
func New(opts ...Option) (*Allocator, error) {
	o := &options{
		epoch:        Epoch,
		now:          wallClock,
		hostIdentity: LocalHostIdentity,
	}
	for _, opt := range opts {
		opt(o)
	}

	machineID := o.machineID
	if o.machineIDSet {
		if machineID < 0 || machineID > MaxMachineID {
			return nil, fmt.Errorf("%w: machine id %d out of range [0, %d]",
				common.ErrorConfiguration, machineID, MaxMachineID)
		}
	} else {
		machineID = DeriveMachineID(o.hostIdentity)
	}

	return &Allocator{
		machineID:     machineID,
		epoch:         o.epoch,
		lastTimestamp: -1,
		now:           o.now,
	}, nil
}

// MachineID reports the machine id packed into every raw value.
func (a *Allocator) MachineID() int64 {
	return a.machineID
}

// Next returns a new id in [MinID, MaxID].
//
// A clock that moved backwards since the previous call yields a wrapped
// common.ErrorClockRegression; the caller must not retry in a tight loop.
// When the 4096 sequence values of the current millisecond are used up Next
// spins until the clock advances. The spin cannot be cancelled.
func (a *Allocator) Next() (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	if now < a.lastTimestamp {
		return 0, fmt.Errorf("%w: refusing to generate id for %d milliseconds",
			common.ErrorClockRegression, a.lastTimestamp-now)
	}

	if now == a.lastTimestamp {
		a.sequence = (a.sequence + 1) & maxSequence
		if a.sequence == 0 {
			now = a.waitNextMillis(a.lastTimestamp)
		}
	} else {
		a.sequence = 0
	}

	a.lastTimestamp = now

	raw := (now-a.epoch)<<timestampShift | a.machineID<<machineIDShift | a.sequence

	return fold(raw), nil
}

func (a *Allocator) waitNextMillis(last int64) int64 {
	ts := a.now()
	for ts <= last {
		ts = a.now()
	}
	return ts
}

// fold maps a raw value into [MinID, MaxID]. |raw mod n| equals |raw| mod n
// under Go's truncated remainder and does not overflow for math.MinInt64.
func fold(raw int64) int64 {
	r := raw % foldRange
	if r < 0 {
		r = -r
	}
	return MinID + r
}
