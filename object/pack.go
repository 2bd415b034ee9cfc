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
	liberr "github.com/opsnet/rpcgo/errors"
)

// Pack builds a fresh Object from template (spec §4.1's compact format
// string) and a variadic argument list. The returned Object owns one
// reference, as if built with a New* constructor.
func Pack(template string, args ...interface{}) (*Object, liberr.Error) {
	root, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	c := &packCursor{args: args}
	o, err := packNode(root, c)
	if err != nil {
		return nil, err
	}
	return o, nil
}

type packCursor struct {
	args []interface{}
	pos  int
}

func (c *packCursor) next() (interface{}, liberr.Error) {
	if c.pos >= len(c.args) {
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
	v := c.args[c.pos]
	c.pos++
	return v, nil
}

func packNode(n *tplNode, c *packCursor) (*Object, liberr.Error) {
	if n.schema != "" {
		tpl, err := LookupSchema(n.schema)
		if err != nil {
			return nil, err
		}
		sub, err := parseTemplate(tpl)
		if err != nil {
			return nil, err
		}
		return packNode(sub, c)
	}

	switch n.tok {
	case 'n':
		if _, err := c.next(); err != nil {
			return nil, err
		}
		return NewNull(), nil
	case 'b':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return NewBool(b), nil
	case 'i':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		i, ok := asInt64(v)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return NewInt64(i), nil
	case 'u':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		u, ok := asUint64(v)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return NewUint64(u), nil
	case 'd':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		d, ok := asFloat64(v)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return NewDouble(d), nil
	case 's':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return NewString(s), nil
	case 'f':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		fd, ok := asInt(v)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return NewFD(fd, true), nil
	case 'v':
		v, err := c.next()
		if err != nil {
			return nil, err
		}
		ov, ok := v.(*Object)
		if !ok {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		return ov.Retain(), nil
	case '[':
		elems := make([]*Object, len(n.children))
		for i, child := range n.children {
			v, err := packNode(child, c)
			if err != nil {
				return nil, err
			}
			idx := i
			if child.hasIndex {
				idx = child.index
			}
			for idx >= len(elems) {
				elems = append(elems, NewNull())
			}
			elems[idx] = v
		}
		arr := NewArray(elems...)
		for _, e := range elems {
			e.Release()
		}
		return arr, nil
	case '{':
		order := make([]string, 0, len(n.children))
		pairs := make(map[string]*Object, len(n.children))
		for _, child := range n.children {
			key := child.key
			if key == "" {
				kv, err := c.next()
				if err != nil {
					return nil, err
				}
				ks, ok := kv.(string)
				if !ok {
					return nil, liberr.KindInvalidArguments.Error(nil)
				}
				key = ks
			}
			v, err := packNode(child, c)
			if err != nil {
				return nil, err
			}
			order = append(order, key)
			pairs[key] = v
		}
		dict := NewDictionary(pairs, order)
		for _, v := range pairs {
			v.Release()
		}
		return dict, nil
	default:
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	default:
		return 0, false
	}
}

func asUint64(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint:
		return uint64(t), true
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int, bool) {
	i, ok := asInt64(v)
	return int(i), ok
}
