package jvm

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jvmkit/jni-runtime/errors"
)

// receiverBuffer bounds how many undelivered instances a receiver queues
// before further deliveries are dropped.
const receiverBuffer = 64

// callbackRegistry hands out opaque int64 tokens for the channel bridge.
// A token packs a slot index and a generation counter, so a token kept by
// the JVM after its receiver closed can never alias a newer receiver that
// reuses the slot.
type callbackRegistry struct {
	mu    sync.Mutex
	slots []callbackSlot
	free  []int32
}

type callbackSlot struct {
	gen    uint32
	ch     chan *Instance
	active bool
}

func packToken(index int32, gen uint32) int64 {
	return int64(gen)<<32 | int64(index+1)
}

func unpackToken(token int64) (index int32, gen uint32, ok bool) {
	low := token & 0xffffffff
	if low == 0 {
		return 0, 0, false
	}
	return int32(low - 1), uint32(token >> 32), true
}

func (r *callbackRegistry) register() (int64, chan *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan *Instance, receiverBuffer)
	var idx int32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.gen++
		s.ch = ch
		s.active = true
	} else {
		r.slots = append(r.slots, callbackSlot{ch: ch, active: true})
		idx = int32(len(r.slots) - 1)
	}
	return packToken(idx, r.slots[idx].gen), ch
}

func (r *callbackRegistry) unregister(token int64) bool {
	idx, gen, ok := unpackToken(token)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(idx) >= len(r.slots) {
		return false
	}
	s := &r.slots[idx]
	if !s.active || s.gen != gen {
		return false
	}
	s.active = false
	s.ch = nil
	r.free = append(r.free, idx)
	return true
}

// deliver routes inst to the receiver registered under token. It reports
// false for stale or unknown tokens and when the receiver's buffer is full;
// the caller keeps ownership of inst in that case.
func (r *callbackRegistry) deliver(token int64, inst *Instance) bool {
	idx, gen, ok := unpackToken(token)
	if !ok {
		return false
	}
	r.mu.Lock()
	if int(idx) >= len(r.slots) {
		r.mu.Unlock()
		return false
	}
	s := &r.slots[idx]
	if !s.active || s.gen != gen {
		r.mu.Unlock()
		return false
	}
	ch := s.ch
	r.mu.Unlock()

	select {
	case ch <- inst:
		return true
	default:
		return false
	}
}

// InstanceReceiver yields instances pushed by JVM-owned threads through the
// channel bridge. Receivers must be closed; closing invalidates the token
// so late deliveries are dropped instead of queueing forever.
type InstanceReceiver struct {
	reg    *callbackRegistry
	token  int64
	ch     chan *Instance
	closed atomic.Bool
}

func newReceiver(reg *callbackRegistry, token int64, ch chan *Instance) *InstanceReceiver {
	return &InstanceReceiver{reg: reg, token: token, ch: ch}
}

// Chan exposes the delivery channel for use in select statements. Instances
// read from it must be closed by the caller.
func (r *InstanceReceiver) Chan() <-chan *Instance {
	return r.ch
}

// Recv blocks until a delivery arrives or ctx is done.
func (r *InstanceReceiver) Recv(ctx context.Context) (*Instance, error) {
	select {
	case inst := <-r.ch:
		return inst, nil
	case <-ctx.Done():
		return nil, errors.General(errors.PhaseCallback, "receive canceled", ctx.Err())
	}
}

// Token returns the opaque correlation token handed to the JVM side.
func (r *InstanceReceiver) Token() int64 {
	return r.token
}

// Close invalidates the receiver's token and releases any queued instances.
func (r *InstanceReceiver) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.reg.unregister(r.token)
	for {
		select {
		case inst := <-r.ch:
			if err := inst.Close(); err != nil {
				Logger().Warn("failed to release queued callback instance",
					zap.Int64("token", r.token), zap.Error(err))
			}
		default:
			return nil
		}
	}
}
