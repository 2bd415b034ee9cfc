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
	"strings"

	"github.com/opsnet/rpcgo/call"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// dispatchDiscover answers the discover.* namespace (spec §4.4
// "Discovery"): get_instances lists registered paths, get_interfaces
// lists the interface names on one Instance, get_methods lists
// {name, description, interface} for every method on one Instance. A
// "*_reply" name is this module's own reply to an outbound discovery
// request and is routed to the matching pendingCalls entry instead.
func (c *Connection) dispatchDiscover(e envelope) {
	if strings.HasSuffix(e.Name, "_reply") {
		if cl, ok := c.pendingCalls.Load(e.ID); ok {
			cl.OnResponse(e.Payload)
			c.pendingCalls.Delete(e.ID)
		}
		return
	}

	ctx := c.ctx.Load()
	if ctx == nil {
		c.replyDiscoverError(e.ID, e.Name, liberr.KindNotFound.Error(nil))
		return
	}

	switch e.Name {
	case "get_instances":
		paths := ctx.Instances()
		elems := make([]*object.Object, 0, len(paths))
		for _, p := range paths {
			elems = append(elems, object.NewString(p))
		}
		arr := object.NewArray(elems...)
		for _, el := range elems {
			el.Release()
		}
		c.replyDiscover(e.ID, "get_instances", arr)
		arr.Release()

	case "get_interfaces":
		path, lerr := e.Payload.String()
		if lerr != nil {
			c.replyDiscoverError(e.ID, e.Name, liberr.KindInvalidArguments.Error(nil))
			return
		}
		ins, ok := ctx.Instance(path)
		if !ok {
			c.replyDiscoverError(e.ID, e.Name, liberr.KindNotFound.Error(nil))
			return
		}
		ifaces := ins.Interfaces()
		elems := make([]*object.Object, 0, len(ifaces))
		for _, iface := range ifaces {
			elems = append(elems, object.NewString(iface.Name()))
		}
		arr := object.NewArray(elems...)
		for _, el := range elems {
			el.Release()
		}
		c.replyDiscover(e.ID, "get_interfaces", arr)
		arr.Release()

	case "get_methods":
		path, lerr := e.Payload.String()
		if lerr != nil {
			c.replyDiscoverError(e.ID, e.Name, liberr.KindInvalidArguments.Error(nil))
			return
		}
		methods, derr := ctx.DiscoverMethods(path)
		if derr != nil {
			c.replyDiscoverError(e.ID, e.Name, derr)
			return
		}
		c.replyDiscover(e.ID, "get_methods", methods)
		methods.Release()
	}
}

func (c *Connection) replyDiscover(id uint64, name string, payload *object.Object) {
	_ = c.send(envelope{Namespace: "discover", Name: name + "_reply", ID: id, Payload: payload})
}

func (c *Connection) replyDiscoverError(id uint64, name string, err liberr.Error) {
	errObj := object.NewError(int64(err.GetCode()), err.Error(), nil, nil)
	_ = c.send(envelope{Namespace: "discover", Name: name + "_reply", ID: id, Payload: errObj})
	errObj.Release()
}

// DiscoverInstances asks the peer for its registered Instance paths.
func (c *Connection) DiscoverInstances() (*call.Call, liberr.Error) {
	id := c.seq.Next()
	return c.sendDiscoverRequest(id, "get_instances", nil)
}

// DiscoverInterfaces asks the peer for the Interfaces registered on path.
func (c *Connection) DiscoverInterfaces(path string) (*call.Call, liberr.Error) {
	id := c.seq.Next()
	arg := object.NewString(path)
	defer arg.Release()
	return c.sendDiscoverRequest(id, "get_interfaces", arg)
}

// DiscoverMethods asks the peer for the Methods registered on path.
func (c *Connection) DiscoverMethods(path string) (*call.Call, liberr.Error) {
	id := c.seq.Next()
	arg := object.NewString(path)
	defer arg.Release()
	return c.sendDiscoverRequest(id, "get_methods", arg)
}

func (c *Connection) sendDiscoverRequest(id uint64, name string, arg *object.Object) (*call.Call, liberr.Error) {
	cl := call.New(id, "", "", name, 0,
		func(uint64, int32) liberr.Error { return nil },
		func(uint64) liberr.Error { return nil },
	)
	c.pendingCalls.Store(id, cl)
	if err := c.send(envelope{Namespace: "discover", Name: name, ID: id, Payload: arg}); err != nil {
		c.pendingCalls.Delete(id)
		return nil, err
	}
	return cl, nil
}
