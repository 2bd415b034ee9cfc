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

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

const defaultPrefetchCredit = 16

// SendFragmentFunc emits one rpc.fragment envelope for id.
type SendFragmentFunc func(id uint64, frag *object.Object) liberr.Error

// SendEndFunc emits the rpc.end envelope for id.
type SendEndFunc func(id uint64) liberr.Error

// SendResponseFunc emits the rpc.response envelope for id.
type SendResponseFunc func(id uint64, result *object.Object) liberr.Error

// ServerCall is the dispatch-side state machine a registered handler
// drives (spec §4.4/§4.5). A streaming handler receives a ServerCall and
// calls Yield repeatedly; a single-reply handler calls Respond once.
type ServerCall struct {
	id     uint64
	path   string
	iface  string
	method string

	mu         sync.Mutex
	cond       *sync.Cond
	status     ServerStatus
	credit     int64
	cancelled  bool
	fragmentsN int

	sendFragment SendFragmentFunc
	sendEnd      SendEndFunc
	sendResponse SendResponseFunc
}

// NewServerCall constructs a ServerCall in the accepted state.
func NewServerCall(id uint64, path, iface, method string, initialCredit int32, sendFragment SendFragmentFunc, sendEnd SendEndFunc, sendResponse SendResponseFunc) *ServerCall {
	credit := int64(initialCredit)
	if credit <= 0 {
		credit = defaultPrefetchCredit
	}
	sc := &ServerCall{
		id:           id,
		path:         path,
		iface:        iface,
		method:       method,
		status:       ServerAccepted,
		credit:       credit,
		sendFragment: sendFragment,
		sendEnd:      sendEnd,
		sendResponse: sendResponse,
	}
	sc.cond = sync.NewCond(&sc.mu)
	return sc
}

func (sc *ServerCall) ID() uint64        { return sc.id }
func (sc *ServerCall) Path() string      { return sc.path }
func (sc *ServerCall) Interface() string { return sc.iface }
func (sc *ServerCall) Method() string    { return sc.method }

// Status returns the ServerCall's current status.
func (sc *ServerCall) Status() ServerStatus {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.status
}

// Dispatch transitions accepted -> running, just before the handler runs.
func (sc *ServerCall) Dispatch() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.status == ServerAccepted {
		sc.status = ServerRunning
	}
}

// Yield sends one fragment, blocking while the prefetch credit is
// exhausted. It returns non-zero if the call was cancelled (peer abort or
// connection close) either before or while blocked, per spec §4.4/§5 — a
// well-written handler treats that as its cue to unwind.
func (sc *ServerCall) Yield(frag *object.Object) int {
	sc.mu.Lock()
	if sc.status == ServerRunning {
		sc.status = ServerStreaming
	}
	for sc.credit <= 0 && !sc.cancelled {
		sc.cond.Wait()
	}
	if sc.cancelled {
		sc.mu.Unlock()
		return 1
	}
	sc.credit--
	sc.fragmentsN++
	sc.mu.Unlock()

	if sc.sendFragment == nil {
		return 0
	}
	if err := sc.sendFragment(sc.id, frag); err != nil {
		sc.Cancel()
		return 1
	}
	return 0
}

// OnContinue credits n further fragments, per the client's rpc.continue
// envelope, and wakes any handler blocked in Yield.
func (sc *ServerCall) OnContinue(n int32) {
	sc.mu.Lock()
	sc.credit += int64(n)
	sc.cond.Broadcast()
	sc.mu.Unlock()
}

// Respond sends the single-reply result and retires the call.
func (sc *ServerCall) Respond(result *object.Object) liberr.Error {
	sc.mu.Lock()
	sc.status = ServerResponded
	sc.mu.Unlock()
	if sc.sendResponse != nil {
		if err := sc.sendResponse(sc.id, result); err != nil {
			return err
		}
	}
	sc.mu.Lock()
	sc.status = ServerRetired
	sc.mu.Unlock()
	return nil
}

// End sends rpc.end once a streaming handler returns, retiring the call.
func (sc *ServerCall) End() liberr.Error {
	sc.mu.Lock()
	sc.status = ServerEnding
	sc.mu.Unlock()
	if sc.sendEnd != nil {
		if err := sc.sendEnd(sc.id); err != nil {
			return err
		}
	}
	sc.mu.Lock()
	sc.status = ServerRetired
	sc.mu.Unlock()
	return nil
}

// Cancel marks the call cancelling (spec: peer rpc.abort, or the
// Connection tearing down) and wakes any handler blocked in Yield.
func (sc *ServerCall) Cancel() {
	sc.mu.Lock()
	if sc.status != ServerRetired {
		sc.status = ServerCancelling
	}
	sc.cancelled = true
	sc.cond.Broadcast()
	sc.mu.Unlock()
}

// Cancelled reports whether the peer aborted or the connection closed.
func (sc *ServerCall) Cancelled() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cancelled
}

// FragmentsSent is a test/introspection hook reporting how many fragments
// this call has successfully yielded so far.
func (sc *ServerCall) FragmentsSent() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.fragmentsN
}
