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

// Package rpcd implements the bus discovery daemon's registry (spec §6,
// supplementing original_source's rpcd.h/discovery.c): a process-local
// directory of {name -> uri, description} pairs that answers
// bus_enumerate and bus_ping over the `discover` namespace's NATS
// subjects (transport/bus.RootSubject), rather than persisting anything
// to disk (spec §6 "Persisted state" names only RPCD_SOCKET_LOCATION as
// the client-side default, not a server-side store).
package rpcd

import (
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/logger"
	"github.com/opsnet/rpcgo/transport/bus"
)

// registerSubject is where services announce themselves; it sits
// outside bus.RootSubject's endpoint/enumerate/ping hierarchy so a
// registration request can never collide with a live bus connection.
const registerSubject = bus.RootSubject + ".register"

// Registration is one service's directory entry.
type Registration struct {
	Name        string
	URI         string
	Description string
}

// Daemon is one running rpcd instance: a NATS connection answering
// register/enumerate/ping requests against an in-memory registry.
type Daemon struct {
	nc  *nats.Conn
	log logger.Logger

	mu  sync.RWMutex
	reg map[string]Registration

	subs []*nats.Subscription
}

// New connects to natsURL (empty for nats.DefaultURL) and starts
// answering requests. log defaults to a no-op logger when nil.
func New(natsURL string, log logger.Logger) (*Daemon, liberr.Error) {
	if log == nil {
		log = logger.Noop()
	}
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}
	nc, e := nats.Connect(natsURL)
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	d := &Daemon{nc: nc, log: log, reg: make(map[string]Registration)}
	if err := d.subscribeAll(); err != nil {
		nc.Close()
		return nil, err
	}
	return d, nil
}

// NATSURL reports the broker address this Daemon is connected to.
func (d *Daemon) NATSURL() string { return d.nc.ConnectedUrl() }

func (d *Daemon) subscribeAll() liberr.Error {
	regSub, e := d.nc.Subscribe(registerSubject, d.handleRegister)
	if e != nil {
		return liberr.KindTransportClosed.Error(e)
	}
	d.subs = append(d.subs, regSub)

	enumSub, e := d.nc.Subscribe(bus.RootSubject+".enumerate", d.handleEnumerate)
	if e != nil {
		return liberr.KindTransportClosed.Error(e)
	}
	d.subs = append(d.subs, enumSub)

	pingSub, e := d.nc.Subscribe(bus.RootSubject+".endpoint.*.ping", d.handlePing)
	if e != nil {
		return liberr.KindTransportClosed.Error(e)
	}
	d.subs = append(d.subs, pingSub)
	return nil
}

// Register adds or replaces a directory entry directly, for in-process
// callers that don't want to round-trip through NATS.
func (d *Daemon) Register(r Registration) {
	d.mu.Lock()
	d.reg[r.Name] = r
	d.mu.Unlock()
	d.log.Info("rpcd: registered", logger.Fields{"name": r.Name, "uri": r.URI})
}

// Lookup returns the directory entry for name, if any.
func (d *Daemon) Lookup(name string) (Registration, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.reg[name]
	return r, ok
}

func (d *Daemon) handleRegister(msg *nats.Msg) {
	parts := strings.SplitN(string(msg.Data), "\x00", 3)
	if len(parts) < 2 {
		return
	}
	r := Registration{Name: parts[0], URI: parts[1]}
	if len(parts) == 3 {
		r.Description = parts[2]
	}
	d.Register(r)
	if msg.Reply != "" {
		_ = msg.Respond([]byte("ok"))
	}
}

func (d *Daemon) handleEnumerate(msg *nats.Msg) {
	d.mu.RLock()
	names := make([]string, 0, len(d.reg))
	for n := range d.reg {
		names = append(names, n)
	}
	d.mu.RUnlock()
	_ = msg.Respond([]byte(strings.Join(names, "\n")))
}

func (d *Daemon) handlePing(msg *nats.Msg) {
	name := pingSubjectName(msg.Subject)
	if _, ok := d.Lookup(name); !ok {
		return
	}
	_ = msg.Respond([]byte("pong"))
}

func pingSubjectName(subject string) string {
	prefix := bus.RootSubject + ".endpoint."
	suffix := ".ping"
	if !strings.HasPrefix(subject, prefix) || !strings.HasSuffix(subject, suffix) {
		return ""
	}
	return subject[len(prefix) : len(subject)-len(suffix)]
}

// Close unsubscribes and disconnects from NATS.
func (d *Daemon) Close() liberr.Error {
	for _, s := range d.subs {
		_ = s.Unsubscribe()
	}
	d.nc.Close()
	return nil
}
