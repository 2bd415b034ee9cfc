/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package call

import (
	"sync"
	"time"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// SendContinueFunc asks the peer for more fragments, acknowledging credit
// further fragments the caller is now willing to buffer.
type SendContinueFunc func(id uint64, credit int32) liberr.Error

// SendAbortFunc notifies the peer that the call was aborted locally.
type SendAbortFunc func(id uint64) liberr.Error

// Call is the client-side handle returned by Connection.Call. It is safe
// for concurrent use by multiple goroutines (one consuming fragments,
// another polling Status, say), matching the "prefetch credit" §4.4/§5
// story where wait/continue/abort may come from different call sites.
type Call struct {
	id     uint64
	path   string
	iface  string
	method string

	mu       sync.Mutex
	cond     *sync.Cond
	status   Status
	result   *object.Object
	fail     *object.Object // tag=error payload, set on StatusError
	queue    []*object.Object
	prefetch int32
	doneCh   chan struct{}

	sendContinue SendContinueFunc
	sendAbort    SendAbortFunc
}

// New constructs a Call in its initial in_progress state.
func New(id uint64, path, iface, method string, prefetch int32, sendContinue SendContinueFunc, sendAbort SendAbortFunc) *Call {
	c := &Call{
		id:           id,
		path:         path,
		iface:        iface,
		method:       method,
		status:       StatusInProgress,
		prefetch:     prefetch,
		doneCh:       make(chan struct{}),
		sendContinue: sendContinue,
		sendAbort:    sendAbort,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Call) ID() uint64        { return c.id }
func (c *Call) Path() string      { return c.path }
func (c *Call) Interface() string { return c.iface }
func (c *Call) Method() string    { return c.method }

// Status returns the Call's current status.
func (c *Call) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done is closed once the Call reaches a terminal status.
func (c *Call) Done() <-chan struct{} { return c.doneCh }

func (c *Call) transition(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return
	}
	c.status = s
	if s.Terminal() {
		close(c.doneCh)
	}
	c.cond.Broadcast()
}

// OnResponse is invoked by the Connection on receipt of rpc.response.
func (c *Call) OnResponse(result *object.Object) {
	c.mu.Lock()
	if c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.result = result
	c.status = StatusDone
	close(c.doneCh)
	c.cond.Broadcast()
	c.mu.Unlock()
}

// OnFragment is invoked by the Connection on receipt of rpc.fragment.
func (c *Call) OnFragment(frag *object.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return
	}
	c.queue = append(c.queue, frag)
	c.status = StatusMoreAvailable
	c.cond.Broadcast()
}

// OnEnd is invoked by the Connection on receipt of rpc.end.
func (c *Call) OnEnd() {
	c.transition(StatusEnded)
}

// OnError is invoked by the Connection on receipt of rpc.error, or
// synthesised locally when the transport fails out from under a pending
// call (spec §5 "close... translates into rpc.error on every pending Call").
func (c *Call) OnError(errObj *object.Object) {
	c.mu.Lock()
	if c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.fail = errObj
	c.status = StatusError
	close(c.doneCh)
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Result returns the single-reply payload once Status is StatusDone.
func (c *Call) Result() *object.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Failure returns the error Object once Status is StatusError.
func (c *Call) Failure() *object.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fail
}

// NextFragment blocks until a fragment is available, the call ends, or ctx
// (modeled here as a deadline, per spec §5 "wait(deadline)") elapses. ok is
// false once the queue is drained and the call has reached a terminal
// status other than having more queued fragments.
func (c *Call) NextFragment(deadline time.Time) (frag *object.Object, ok bool, timedOut bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.queue) > 0 {
			frag = c.queue[0]
			c.queue = c.queue[1:]
			return frag, true, false
		}
		if c.status.Terminal() {
			return nil, false, false
		}
		if deadline.IsZero() {
			c.cond.Wait()
			continue
		}
		if !c.waitUntilLocked(deadline) {
			return nil, false, true
		}
	}
}

// Wait blocks until the Call reaches a terminal status, or deadline
// elapses. A zero deadline waits forever. Per spec §5, a timeout never
// changes the Call's own status — the call stays live until explicitly
// aborted.
func (c *Call) Wait(deadline time.Time) (status Status, timedOut bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.status.Terminal() {
		if deadline.IsZero() {
			c.cond.Wait()
			continue
		}
		if time.Now().After(deadline) {
			return c.status, true
		}
		if !c.waitUntilLocked(deadline) {
			return c.status, true
		}
	}
	return c.status, false
}

func (c *Call) waitUntilLocked(deadline time.Time) bool {
	timer := time.AfterFunc(time.Until(deadline), func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()
	c.cond.Wait()
	return time.Now().Before(deadline) || c.status.Terminal()
}

// Continue asks the peer for more fragments with the given prefetch
// credit. Per spec §9's resolved Open Question, a smaller credit only
// lower-bounds future admittance — fragments already queued are kept.
func (c *Call) Continue(credit int32) liberr.Error {
	c.mu.Lock()
	c.prefetch = credit
	c.mu.Unlock()
	if c.sendContinue == nil {
		return nil
	}
	return c.sendContinue(c.id, credit)
}

// Abort transitions the Call to aborted locally and notifies the peer.
func (c *Call) Abort() liberr.Error {
	c.mu.Lock()
	if c.status.Terminal() {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusAborted
	close(c.doneCh)
	c.cond.Broadcast()
	c.mu.Unlock()
	if c.sendAbort == nil {
		return nil
	}
	return c.sendAbort(c.id)
}
