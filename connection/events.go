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
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// eventEnvelope is the {path, interface, name, args} shape carried as the
// events.event payload (spec §4.4 "Events").
type eventEnvelope struct {
	Path      string
	Interface string
	Name      string
	Args      *object.Object
}

func encodeEventPayload(path, iface, name string, args *object.Object) *object.Object {
	pairs := map[string]*object.Object{
		"path":      object.NewString(path),
		"interface": object.NewString(iface),
		"name":      object.NewString(name),
	}
	order := []string{"path", "interface", "name"}
	if args != nil {
		pairs["args"] = args.Retain()
		order = append(order, "args")
	}
	d := object.NewDictionary(pairs, order)
	for _, v := range pairs {
		v.Release()
	}
	return d
}

func decodeEventPayload(payload *object.Object) (eventEnvelope, liberr.Error) {
	var ev eventEnvelope
	if payload == nil {
		return ev, liberr.KindInvalidArguments.Error(nil)
	}
	if p, ok := payload.Get("path"); ok {
		ev.Path, _ = p.String()
	}
	if i, ok := payload.Get("interface"); ok {
		ev.Interface, _ = i.String()
	}
	if n, ok := payload.Get("name"); ok {
		ev.Name, _ = n.String()
	}
	if a, ok := payload.Get("args"); ok {
		ev.Args = a
	}
	return ev, nil
}

// Subscribe registers handler for every events.event whose path/interface/
// name match pattern (nil fields wildcard), returning a subscription id
// for Unsubscribe. This also tells the peer, via events.subscribe, that
// this Connection wants to receive the matching broadcasts.
func (c *Connection) Subscribe(pattern EventPattern, handler EventHandler) (uint64, liberr.Error) {
	c.subsMu.Lock()
	c.subSeq++
	id := c.subSeq
	c.subs[id] = struct {
		pattern EventPattern
		handler EventHandler
	}{pattern, handler}
	c.subsMu.Unlock()

	req := patternToObject(pattern)
	defer req.Release()
	if err := c.send(envelope{Namespace: "events", Name: "subscribe", ID: id, Payload: req}); err != nil {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
		return 0, err
	}
	return id, nil
}

// Unsubscribe withdraws a prior Subscribe.
func (c *Connection) Unsubscribe(id uint64) liberr.Error {
	c.subsMu.Lock()
	_, ok := c.subs[id]
	delete(c.subs, id)
	c.subsMu.Unlock()
	if !ok {
		return nil
	}
	return c.send(envelope{Namespace: "events", Name: "unsubscribe", ID: id})
}

// BroadcastEvent sends one events.event envelope over the wire when any
// subscription recorded on this Connection matches path/iface/name (spec
// §4.4: broadcast is server-initiated, unsolicited). The subscriptions
// checked include both those the peer registered via events.subscribe and
// those made locally with Subscribe; local handlers are not invoked.
func (c *Connection) BroadcastEvent(path, iface, name string, args *object.Object) liberr.Error {
	c.subsMu.Lock()
	matched := false
	for _, s := range c.subs {
		if s.pattern.matches(path, iface, name) {
			matched = true
			break
		}
	}
	c.subsMu.Unlock()
	if !matched {
		return nil
	}
	payload := encodeEventPayload(path, iface, name, args)
	defer payload.Release()
	return c.send(envelope{Namespace: "events", Name: "event", ID: c.seq.Next(), Payload: payload})
}

func (c *Connection) dispatchEvents(e envelope) {
	switch e.Name {
	case "event":
		ev, derr := decodeEventPayload(e.Payload)
		if derr != nil {
			return
		}
		c.subsMu.Lock()
		handlers := make([]EventHandler, 0, len(c.subs))
		for _, s := range c.subs {
			if s.pattern.matches(ev.Path, ev.Interface, ev.Name) {
				handlers = append(handlers, s.handler)
			}
		}
		c.subsMu.Unlock()
		for _, h := range handlers {
			h(ev.Path, ev.Interface, ev.Name, ev.Args)
		}
	case "subscribe":
		pattern := objectToPattern(e.Payload)
		c.subsMu.Lock()
		c.subs[e.ID] = struct {
			pattern EventPattern
			handler EventHandler
		}{pattern: pattern, handler: nil}
		c.subsMu.Unlock()
	case "unsubscribe":
		c.subsMu.Lock()
		delete(c.subs, e.ID)
		c.subsMu.Unlock()
	}
}

func patternToObject(p EventPattern) *object.Object {
	pairs := map[string]*object.Object{}
	order := []string{}
	if p.Path != nil {
		pairs["path"] = object.NewString(*p.Path)
		order = append(order, "path")
	}
	if p.Interface != nil {
		pairs["interface"] = object.NewString(*p.Interface)
		order = append(order, "interface")
	}
	if p.Name != nil {
		pairs["name"] = object.NewString(*p.Name)
		order = append(order, "name")
	}
	d := object.NewDictionary(pairs, order)
	for _, v := range pairs {
		v.Release()
	}
	return d
}

func objectToPattern(o *object.Object) EventPattern {
	var p EventPattern
	if o == nil {
		return p
	}
	if v, ok := o.Get("path"); ok {
		s, _ := v.String()
		p.Path = &s
	}
	if v, ok := o.Get("interface"); ok {
		s, _ := v.String()
		p.Interface = &s
	}
	if v, ok := o.Get("name"); ok {
		s, _ := v.String()
		p.Name = &s
	}
	return p
}
