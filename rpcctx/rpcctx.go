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

// Package rpcctx is the server-side registry of callable methods (spec
// §4.6): a Context owns a tree of Instances keyed by path, each Instance
// owns named Interfaces, each Interface owns named Methods. It generalises
// nabbar-golib's context/map.go MapManage[T] + atomic-map idiom from a
// flat registry to a path/interface/method tree.
package rpcctx

import (
	"context"
	"strings"
	"sync/atomic"

	libatm "github.com/nabbar/golib/atomic"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

const RootPath = "/"

// SingleHandler is a method whose call produces exactly one reply Object.
type SingleHandler func(ctx context.Context, args *object.Object) (*object.Object, liberr.Error)

// StreamHandler is a method whose call yields zero or more fragments via
// sc.Yield before returning. A non-nil return is reported to the peer as
// rpc.error instead of rpc.end.
type StreamHandler func(ctx context.Context, args *object.Object, sc StreamYielder) liberr.Error

// StreamYielder is the minimal view a StreamHandler needs of its
// call.ServerCall; kept as an interface here so rpcctx does not import the
// call package back (connection wires the concrete type through).
type StreamYielder interface {
	Yield(frag *object.Object) int
	Cancelled() bool
}

// MethodKind distinguishes single-reply from streaming methods.
type MethodKind uint8

const (
	MethodSingle MethodKind = iota
	MethodStreaming
)

// Method is one registered, callable operation.
type Method struct {
	Name        string
	Description string
	Kind        MethodKind
	Single      SingleHandler
	Stream      StreamHandler
}

// Interface is a named namespace of Methods within an Instance.
type Interface struct {
	name    string
	methods libatm.MapTyped[string, *Method]
}

func newInterface(name string) *Interface {
	return &Interface{name: name, methods: libatm.NewMapTyped[string, *Method]()}
}

func (i *Interface) Name() string { return i.name }

// RegisterMethod adds or replaces a method by exact name (spec §4.6:
// lookups are O(1) exact match, no wildcards for dispatch).
func (i *Interface) RegisterMethod(m *Method) {
	i.methods.Store(m.Name, m)
}

func (i *Interface) Lookup(name string) (*Method, bool) {
	return i.methods.Load(name)
}

// Methods returns a snapshot of all registered methods, for discovery.
func (i *Interface) Methods() []*Method {
	out := make([]*Method, 0)
	i.methods.Range(func(_ string, m *Method) bool {
		out = append(out, m)
		return true
	})
	return out
}

// Instance is a named addressable target on a server (spec §4.6). It
// carries an opaque caller-supplied argument pointer the core never
// inspects.
type Instance struct {
	path       string
	arg        interface{}
	interfaces libatm.MapTyped[string, *Interface]
}

func newInstance(path string, arg interface{}) *Instance {
	return &Instance{path: path, arg: arg, interfaces: libatm.NewMapTyped[string, *Interface]()}
}

func (ins *Instance) Path() string        { return ins.path }
func (ins *Instance) Arg() interface{}     { return ins.arg }
func (ins *Instance) SetArg(a interface{}) { ins.arg = a }

func (ins *Instance) RegisterInterface(name string) *Interface {
	if iface, ok := ins.interfaces.Load(name); ok {
		return iface
	}
	iface := newInterface(name)
	ins.interfaces.Store(name, iface)
	return iface
}

func (ins *Instance) Interface(name string) (*Interface, bool) {
	return ins.interfaces.Load(name)
}

func (ins *Instance) Interfaces() []*Interface {
	out := make([]*Interface, 0)
	ins.interfaces.Range(func(_ string, iface *Interface) bool {
		out = append(out, iface)
		return true
	})
	return out
}

// PreCallHook runs before a handler is dispatched; it may replace args
// (returning a new Object) or reject the call by returning a non-nil
// error.
type PreCallHook func(ctx context.Context, path, iface, method string, args *object.Object) (*object.Object, liberr.Error)

// PostCallHook runs after a handler completes, observing its outcome.
type PostCallHook func(ctx context.Context, path, iface, method string, result *object.Object, callErr liberr.Error)

// Context is the server's registry of Instances and their Interfaces
// (spec §4.6). It is reference-counted and shared between a Server and
// any in-process agent that registers methods (spec §3 Ownership);
// Release tears it down once the last holder lets go.
type Context struct {
	refs      atomic.Int32
	instances libatm.MapTyped[string, *Instance]
	preHook   atomic.Pointer[PreCallHook]
	postHook  atomic.Pointer[PostCallHook]
}

// New constructs a Context with one reference already held.
func New() *Context {
	c := &Context{instances: libatm.NewMapTyped[string, *Instance]()}
	c.refs.Store(1)
	return c
}

// Retain increments the Context's reference count.
func (c *Context) Retain() *Context {
	c.refs.Add(1)
	return c
}

// Release decrements the reference count; at zero every Instance is
// dropped.
func (c *Context) Release() {
	if c.refs.Add(-1) > 0 {
		return
	}
	c.instances.Range(func(k string, _ *Instance) bool {
		c.instances.Delete(k)
		return true
	})
}

func normalizePath(path string) string {
	if path == "" {
		return RootPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// RegisterInstance creates (or returns the existing) Instance at path,
// with arg as its opaque caller-supplied argument.
func (c *Context) RegisterInstance(path string, arg interface{}) *Instance {
	path = normalizePath(path)
	if ins, ok := c.instances.Load(path); ok {
		return ins
	}
	ins := newInstance(path, arg)
	c.instances.Store(path, ins)
	return ins
}

// Instance looks up an Instance by exact path.
func (c *Context) Instance(path string) (*Instance, bool) {
	return c.instances.Load(normalizePath(path))
}

// RemoveInstance deletes the Instance at path and its entire subtree
// (spec §3: "removing an Instance removes its subtree").
func (c *Context) RemoveInstance(path string) {
	path = normalizePath(path)
	prefix := path
	if prefix != RootPath {
		prefix += "/"
	}
	c.instances.Range(func(k string, _ *Instance) bool {
		if k == path || strings.HasPrefix(k, prefix) {
			c.instances.Delete(k)
		}
		return true
	})
}

// Instances returns a snapshot of every registered path, for discovery.
func (c *Context) Instances() []string {
	out := make([]string, 0)
	c.instances.Range(func(k string, _ *Instance) bool {
		out = append(out, k)
		return true
	})
	return out
}

// RegisterInterface is a convenience for Instance(path) followed by
// RegisterInterface(name); it fails with not-found when no Instance is
// registered at path.
func (c *Context) RegisterInterface(path, name string) (*Interface, liberr.Error) {
	ins, ok := c.Instance(path)
	if !ok {
		return nil, liberr.KindNotFound.Error(nil)
	}
	return ins.RegisterInterface(name), nil
}

// RegisterMethod is a convenience for looking up path/interface and
// registering the method on it.
func (c *Context) RegisterMethod(path, ifaceName string, m *Method) liberr.Error {
	ins, ok := c.Instance(path)
	if !ok {
		return liberr.KindNotFound.Error(nil)
	}
	iface, ok := ins.Interface(ifaceName)
	if !ok {
		iface = ins.RegisterInterface(ifaceName)
	}
	iface.RegisterMethod(m)
	return nil
}

// Lookup resolves path -> instance -> interface -> method (spec §4.4: "If
// any lookup fails the Connection replies rpc.error with code not-found").
func (c *Context) Lookup(path, ifaceName, methodName string) (*Instance, *Interface, *Method, liberr.Error) {
	ins, ok := c.Instance(path)
	if !ok {
		return nil, nil, nil, liberr.KindNotFound.Error(nil)
	}
	iface, ok := ins.Interface(ifaceName)
	if !ok {
		return nil, nil, nil, liberr.KindNotFound.Error(nil)
	}
	m, ok := iface.Lookup(methodName)
	if !ok {
		return nil, nil, nil, liberr.KindNotFound.Error(nil)
	}
	return ins, iface, m, nil
}

// SetPreCallHook installs the hook run around every handler dispatch.
func (c *Context) SetPreCallHook(h PreCallHook) {
	c.preHook.Store(&h)
}

// SetPostCallHook installs the hook run after every handler dispatch.
func (c *Context) SetPostCallHook(h PostCallHook) {
	c.postHook.Store(&h)
}

// RunPreCallHook invokes the installed pre-call hook, if any, returning
// args unchanged when none is set.
func (c *Context) RunPreCallHook(ctx context.Context, path, iface, method string, args *object.Object) (*object.Object, liberr.Error) {
	if p := c.preHook.Load(); p != nil && *p != nil {
		return (*p)(ctx, path, iface, method, args)
	}
	return args, nil
}

// RunPostCallHook invokes the installed post-call hook, if any.
func (c *Context) RunPostCallHook(ctx context.Context, path, iface, method string, result *object.Object, callErr liberr.Error) {
	if p := c.postHook.Load(); p != nil && *p != nil {
		(*p)(ctx, path, iface, method, result, callErr)
	}
}

// DiscoverMethods enumerates {name, description, interface} dictionaries
// for the discover.get_methods reply (spec §4.4/§6).
func (c *Context) DiscoverMethods(path string) (*object.Object, liberr.Error) {
	ins, ok := c.Instance(path)
	if !ok {
		return nil, liberr.KindNotFound.Error(nil)
	}
	entries := make([]*object.Object, 0)
	for _, iface := range ins.Interfaces() {
		for _, m := range iface.Methods() {
			d := object.NewDictionary(map[string]*object.Object{
				"name":        object.NewString(m.Name),
				"description": object.NewString(m.Description),
				"interface":   object.NewString(iface.Name()),
			}, []string{"name", "description", "interface"})
			entries = append(entries, d)
		}
	}
	arr := object.NewArray(entries...)
	for _, e := range entries {
		e.Release()
	}
	return arr, nil
}
