/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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
 *
 */

package object

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxCycleCheckDepth bounds the walk New/Set performs over a would-be
// child's own subtree to reject self-referential container graphs (spec
// §9: cycles are forbidden, detected on insertion up to a bounded depth).
const maxCycleCheckDepth = 64

// FD is the payload of a KindFD Object: a transferable file descriptor.
type FD struct {
	ID    int
	Owned bool
}

// ShmemRegion is the payload of a KindShmem Object: a handle to a mappable
// region whose backing is resolved out-of-band by the shmem package. Size
// and Offset are immutable once the Object exists (spec §4.7).
type ShmemRegion struct {
	Size      uint64
	Offset    uint64
	BackingID string
}

// Frame is one entry of an error Object's stack trace.
type Frame struct {
	File     string
	Line     int
	Function string
}

// Object is a reference-counted, tagged dynamic value. The zero value is
// not valid; use one of the New* constructors.
type Object struct {
	mu   sync.RWMutex
	refs atomic.Int32
	kind Kind
	gen  uint64 // bumped on every container mutation; backs concurrent-mutation detection

	boolVal bool
	i64Val  int64
	u64Val  uint64
	f64Val  float64
	dateVal int64 // microseconds since epoch

	strVal string

	binVal      []byte
	binDestruct func()
	binVolatile bool // true if byte identity is not reproducible (e.g. backed by a live external buffer)

	fdVal FD

	shmemVal ShmemRegion

	arrVal []*Object

	dictKeys []string
	dictVal  map[string]*Object

	errCode  int64
	errMsg   string
	errExtra *Object
	errStack []Frame
}

func newObject(k Kind) *Object {
	o := &Object{kind: k}
	o.refs.Store(1)
	return o
}

// Kind returns the Object's tag.
func (o *Object) Kind() Kind { return o.kind }

// Retain increments the reference count and returns the same Object, so it
// can be chained at call sites that hand a reference to a container.
func (o *Object) Retain() *Object {
	if o == nil {
		return nil
	}
	o.refs.Add(1)
	return o
}

// RefCount reports the current reference count, mostly for tests.
func (o *Object) RefCount() int32 {
	if o == nil {
		return 0
	}
	return o.refs.Load()
}

// Release decrements the reference count; at zero the Object is destroyed
// and every child it owns is released in turn.
func (o *Object) Release() {
	if o == nil {
		return
	}
	if o.refs.Add(-1) > 0 {
		return
	}
	if o.binDestruct != nil {
		o.binDestruct()
	}
	switch o.kind {
	case KindArray:
		for _, c := range o.arrVal {
			c.Release()
		}
	case KindDictionary:
		for _, c := range o.dictVal {
			c.Release()
		}
	case KindError:
		if o.errExtra != nil {
			o.errExtra.Release()
		}
	}
}

func NewNull() *Object { return newObject(KindNull) }

func NewBool(v bool) *Object {
	o := newObject(KindBool)
	o.boolVal = v
	return o
}

func NewInt64(v int64) *Object {
	o := newObject(KindInt64)
	o.i64Val = v
	return o
}

func NewUint64(v uint64) *Object {
	o := newObject(KindUint64)
	o.u64Val = v
	return o
}

func NewDouble(v float64) *Object {
	o := newObject(KindDouble)
	o.f64Val = v
	return o
}

// NewDate wraps an instant as microseconds since the Unix epoch.
func NewDate(t time.Time) *Object {
	o := newObject(KindDate)
	o.dateVal = t.UnixMicro()
	return o
}

func NewDateMicros(us int64) *Object {
	o := newObject(KindDate)
	o.dateVal = us
	return o
}

func NewString(v string) *Object {
	o := newObject(KindString)
	o.strVal = v
	return o
}

// NewBinary wraps an opaque byte blob. destructor, if non-nil, runs once
// when the Object's refcount reaches zero.
func NewBinary(data []byte, destructor func()) *Object {
	o := newObject(KindBinary)
	o.binVal = data
	o.binDestruct = destructor
	return o
}

// NewBinaryVolatile marks the blob as not having a reproducible identity
// (e.g. it aliases memory that may change under the object), excluding it
// from Hash per spec §3.
func NewBinaryVolatile(data []byte, destructor func()) *Object {
	o := NewBinary(data, destructor)
	o.binVolatile = true
	return o
}

func NewFD(fd int, owned bool) *Object {
	o := newObject(KindFD)
	o.fdVal = FD{ID: fd, Owned: owned}
	return o
}

func NewShmem(size, offset uint64, backingID string) *Object {
	o := newObject(KindShmem)
	o.shmemVal = ShmemRegion{Size: size, Offset: offset, BackingID: backingID}
	return o
}

// NewArray builds an array Object, retaining each element.
func NewArray(elems ...*Object) *Object {
	o := newObject(KindArray)
	o.arrVal = make([]*Object, 0, len(elems))
	for _, e := range elems {
		checkNoCycle(o, e, maxCycleCheckDepth)
		o.arrVal = append(o.arrVal, e.Retain())
	}
	return o
}

// NewDictionary builds a dictionary Object from key/value pairs, retaining
// each value. Insertion order is preserved for iteration.
func NewDictionary(pairs map[string]*Object, order []string) *Object {
	o := newObject(KindDictionary)
	o.dictVal = make(map[string]*Object, len(pairs))
	o.dictKeys = make([]string, 0, len(pairs))
	keys := order
	if keys == nil {
		for k := range pairs {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		v := pairs[k]
		checkNoCycle(o, v, maxCycleCheckDepth)
		o.dictVal[k] = v.Retain()
		o.dictKeys = append(o.dictKeys, k)
	}
	return o
}

// NewError builds a composite error Object. stack may be nil; AppendFrame
// grows it as the error crosses named boundaries.
func NewError(code int64, message string, extra *Object, stack []Frame) *Object {
	o := newObject(KindError)
	o.errCode = code
	o.errMsg = message
	if extra != nil {
		o.errExtra = extra.Retain()
	}
	o.errStack = append([]Frame(nil), stack...)
	return o
}

// checkNoCycle walks child's own subtree looking for parent, up to depth
// levels, and panics if found. Callers only ever reach this from a
// single-threaded construction path (spec §3 lifecycle contract), so a
// panic here reflects programmer error, not a runtime fault to recover
// from gracefully.
func checkNoCycle(parent, child *Object, depth int) {
	if parent == nil || child == nil || depth <= 0 {
		return
	}
	if parent == child {
		panic("object: cycle detected while inserting child into container")
	}
	switch child.kind {
	case KindArray:
		for _, c := range child.arrVal {
			checkNoCycle(parent, c, depth-1)
		}
	case KindDictionary:
		for _, c := range child.dictVal {
			checkNoCycle(parent, c, depth-1)
		}
	}
}
