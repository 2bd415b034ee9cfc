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

	liberr "github.com/opsnet/rpcgo/errors"
)

// lastErr backs the "thread-local last-error" convenience accessor spec
// §4.1 calls for: unpack aborts a subtree on the first type mismatch, and
// callers that only check the returned count can still retrieve the
// reason via LastUnpackError. Go has no cheap thread-local storage, so
// this is a single mutex-guarded slot rather than one per goroutine;
// callers that unpack concurrently on multiple goroutines should rely on
// the returned error instead of this accessor.
var lastErr = struct {
	mu  sync.Mutex
	err liberr.Error
}{}

// Unpack walks o according to template, writing decoded values into dest.
// dest entries must be pointers (*bool, *int64, *uint64, *float64,
// *string, *int for fd, **Object for v, or nested slices/maps are not
// supported at top level — use nested templates instead). It returns the
// count of top-level slots successfully populated; a type mismatch at any
// leaf aborts the walk for that subtree and records the error for
// LastUnpackError.
func Unpack(o *Object, template string, dest ...interface{}) (int, liberr.Error) {
	root, err := parseTemplate(template)
	if err != nil {
		setLastErr(err)
		return 0, err
	}
	c := &unpackCursor{dest: dest}
	n, err := unpackNode(root, o, c)
	setLastErr(err)
	return n, err
}

type unpackCursor struct {
	dest []interface{}
	pos  int
}

func (c *unpackCursor) next() (interface{}, liberr.Error) {
	if c.pos >= len(c.dest) {
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
	v := c.dest[c.pos]
	c.pos++
	return v, nil
}

func setLastErr(err liberr.Error) {
	lastErr.mu.Lock()
	defer lastErr.mu.Unlock()
	lastErr.err = err
}

// LastUnpackError returns the error set by the most recent Unpack call
// (nil if that call succeeded).
func LastUnpackError() liberr.Error {
	lastErr.mu.Lock()
	defer lastErr.mu.Unlock()
	return lastErr.err
}

// unpackNode returns the number of top-level slots it (and its
// descendants) populated.
func unpackNode(n *tplNode, o *Object, c *unpackCursor) (int, liberr.Error) {
	if n.schema != "" {
		tpl, err := LookupSchema(n.schema)
		if err != nil {
			return 0, err
		}
		sub, err := parseTemplate(tpl)
		if err != nil {
			return 0, err
		}
		return unpackNode(sub, o, c)
	}

	switch n.tok {
	case 'n':
		if _, err := c.next(); err != nil {
			return 0, err
		}
		return 1, nil
	case 'b':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(*bool)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		v, terr := o.Bool()
		if terr != nil {
			return 0, terr
		}
		*p = v
		return 1, nil
	case 'i':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(*int64)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		v, terr := o.Int64()
		if terr != nil {
			return 0, terr
		}
		*p = v
		return 1, nil
	case 'u':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(*uint64)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		v, terr := o.Uint64()
		if terr != nil {
			return 0, terr
		}
		*p = v
		return 1, nil
	case 'd':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(*float64)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		v, terr := o.Double()
		if terr != nil {
			return 0, terr
		}
		*p = v
		return 1, nil
	case 's':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(*string)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		v, terr := o.String()
		if terr != nil {
			return 0, terr
		}
		*p = v
		return 1, nil
	case 'f':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(*int)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		v, terr := o.FD()
		if terr != nil {
			return 0, terr
		}
		*p = v.ID
		return 1, nil
	case 'v':
		dst, err := c.next()
		if err != nil {
			return 0, err
		}
		p, ok := dst.(**Object)
		if !ok {
			return 0, liberr.KindInvalidArguments.Error(nil)
		}
		*p = o
		return 1, nil
	case '[':
		elems, terr := o.Elements()
		if terr != nil {
			return 0, terr
		}
		count := 0
		for i, child := range n.children {
			idx := i
			if child.hasIndex {
				idx = child.index
			}
			if idx < 0 || idx >= len(elems) {
				return count, liberr.KindInvalidArguments.Error(nil)
			}
			n2, err := unpackNode(child, elems[idx], c)
			count += n2
			if err != nil {
				return count, err
			}
		}
		return count, nil
	case '{':
		count := 0
		for _, child := range n.children {
			key := child.key
			if key == "" {
				kv, err := c.next()
				if err != nil {
					return count, err
				}
				ks, ok := kv.(string)
				if !ok {
					return count, liberr.KindInvalidArguments.Error(nil)
				}
				key = ks
			}
			v, ok := o.Get(key)
			if !ok {
				// absent key: destination left unchanged, not an error
				continue
			}
			n2, err := unpackNode(child, v, c)
			count += n2
			if err != nil {
				return count, err
			}
		}
		return count, nil
	default:
		return 0, liberr.KindInvalidArguments.Error(nil)
	}
}
