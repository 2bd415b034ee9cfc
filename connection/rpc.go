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

package connection

import (
	"context"
	"runtime/debug"

	"github.com/opsnet/rpcgo/call"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/rpcctx"
)

const defaultPrefetch = 16

// Call issues an rpc.call envelope and returns the client-side Call handle
// tracking its lifecycle (spec §4.4 "Client-side call").
func (c *Connection) Call(path, iface, method string, args *object.Object) (*call.Call, liberr.Error) {
	id := c.seq.Next()

	cl := call.New(id, path, iface, method, defaultPrefetch,
		func(callID uint64, credit int32) liberr.Error {
			return c.send(envelope{Namespace: "rpc", Name: "continue", ID: callID, Payload: object.NewInt64(int64(credit))})
		},
		func(callID uint64) liberr.Error {
			return c.send(envelope{Namespace: "rpc", Name: "abort", ID: callID})
		},
	)
	c.pendingCalls.Store(id, cl)

	addr := iface + "@" + path + "/" + method
	if err := c.send(envelope{Namespace: "rpc", Name: "call", ID: id, Address: addr, Payload: args}); err != nil {
		c.pendingCalls.Delete(id)
		return nil, err
	}
	return cl, nil
}

func (c *Connection) dispatchRPC(e envelope) {
	switch e.Name {
	case "call":
		c.handleCall(e)
	case "response":
		if cl, ok := c.pendingCalls.Load(e.ID); ok {
			cl.OnResponse(e.Payload)
			c.pendingCalls.Delete(e.ID)
		}
	case "fragment":
		if cl, ok := c.pendingCalls.Load(e.ID); ok {
			cl.OnFragment(e.Payload)
		}
	case "end":
		if cl, ok := c.pendingCalls.Load(e.ID); ok {
			cl.OnEnd()
			c.pendingCalls.Delete(e.ID)
		}
	case "error":
		if cl, ok := c.pendingCalls.Load(e.ID); ok {
			cl.OnError(e.Payload)
			c.pendingCalls.Delete(e.ID)
		}
	case "continue":
		if sc, ok := c.activeCalls.Load(e.ID); ok {
			credit, _ := e.Payload.Int64()
			sc.OnContinue(int32(credit))
		}
	case "abort":
		if sc, ok := c.activeCalls.Load(e.ID); ok {
			sc.Cancel()
		}
	}
}

// parseAddress splits the "interface@path/method" address this module puts
// on the wire for an rpc.call envelope.
func parseAddress(addr string) (path, iface, method string) {
	at := -1
	for i, r := range addr {
		if r == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return "/", "", addr
	}
	iface = addr[:at]
	rest := addr[at+1:]
	slash := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == '/' {
			slash = i
			break
		}
	}
	if slash < 0 {
		return rest, iface, ""
	}
	return rest[:slash], iface, rest[slash+1:]
}

func (c *Connection) handleCall(e envelope) {
	ctx := c.ctx.Load()
	if ctx == nil {
		c.replyError(e.ID, liberr.KindNotFound.Error(nil))
		return
	}

	path, ifaceName, methodName := parseAddress(e.Address)
	_, _, method, lerr := ctx.Lookup(path, ifaceName, methodName)
	if lerr != nil {
		c.replyError(e.ID, lerr)
		return
	}

	args, perr := ctx.RunPreCallHook(context.Background(), path, ifaceName, methodName, e.Payload)
	if perr != nil {
		c.replyError(e.ID, perr)
		return
	}

	switch method.Kind {
	case rpcctx.MethodSingle:
		sc := call.NewServerCall(e.ID, path, ifaceName, methodName, 0, nil, nil, func(callID uint64, result *object.Object) liberr.Error {
			return c.send(envelope{Namespace: "rpc", Name: "response", ID: callID, Payload: result})
		})
		c.activeCalls.Store(e.ID, sc)
		go c.runSingle(ctx, sc, method, args, path, ifaceName, methodName)
	default:
		sc := call.NewServerCall(e.ID, path, ifaceName, methodName, defaultPrefetch,
			func(callID uint64, frag *object.Object) liberr.Error {
				return c.send(envelope{Namespace: "rpc", Name: "fragment", ID: callID, Payload: frag})
			},
			func(callID uint64) liberr.Error {
				return c.send(envelope{Namespace: "rpc", Name: "end", ID: callID})
			},
			nil,
		)
		c.activeCalls.Store(e.ID, sc)
		go c.runStream(ctx, sc, method, args, path, ifaceName, methodName)
	}
}

func (c *Connection) runSingle(ctx *rpcctx.Context, sc *call.ServerCall, m *rpcctx.Method, args *object.Object, path, iface, method string) {
	defer c.activeCalls.Delete(sc.ID())
	sc.Dispatch()

	result, err := c.safeInvokeSingle(m, args)
	ctx.RunPostCallHook(context.Background(), path, iface, method, result, err)
	if err != nil {
		c.replyError(sc.ID(), err)
		return
	}
	_ = sc.Respond(result)
}

func (c *Connection) safeInvokeSingle(m *rpcctx.Method, args *object.Object) (result *object.Object, err liberr.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = liberr.KindInternal.Error(nil)
			_ = debug.Stack()
		}
	}()
	return m.Single(context.Background(), args)
}

func (c *Connection) runStream(ctx *rpcctx.Context, sc *call.ServerCall, m *rpcctx.Method, args *object.Object, path, iface, method string) {
	defer c.activeCalls.Delete(sc.ID())
	sc.Dispatch()

	err := c.safeInvokeStream(m, args, sc)
	ctx.RunPostCallHook(context.Background(), path, iface, method, nil, err)
	if err != nil {
		c.replyError(sc.ID(), err)
		return
	}
	_ = sc.End()
}

func (c *Connection) safeInvokeStream(m *rpcctx.Method, args *object.Object, sc *call.ServerCall) (err liberr.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = liberr.KindInternal.Error(nil)
			_ = debug.Stack()
		}
	}()
	return m.Stream(context.Background(), args, sc)
}

func (c *Connection) replyError(id uint64, err liberr.Error) {
	errObj := object.NewError(int64(err.GetCode()), err.Error(), nil, nil)
	_ = c.send(envelope{Namespace: "rpc", Name: "error", ID: id, Payload: errObj})
	errObj.Release()
}
