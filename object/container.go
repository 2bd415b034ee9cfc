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

// Length returns the number of elements of an array, or the number of keys
// of a dictionary.
func (o *Object) Length() (int, liberr.Error) {
	if o == nil {
		return 0, typeMismatch(o, KindArray)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	switch o.kind {
	case KindArray:
		return len(o.arrVal), nil
	case KindDictionary:
		return len(o.dictKeys), nil
	default:
		return 0, typeMismatch(o, KindArray)
	}
}

// Append adds value to the end of an array, retaining it.
func (o *Object) Append(value *Object) liberr.Error {
	if o == nil || o.kind != KindArray {
		return typeMismatch(o, KindArray)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	checkNoCycle(o, value, maxCycleCheckDepth)
	o.arrVal = append(o.arrVal, value.Retain())
	o.gen++
	return nil
}

// SetIndex replaces the element at index, releasing the previous one.
func (o *Object) SetIndex(index int, value *Object) liberr.Error {
	if o == nil || o.kind != KindArray {
		return typeMismatch(o, KindArray)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if index < 0 || index >= len(o.arrVal) {
		return liberr.KindInvalidArguments.Error(nil)
	}
	checkNoCycle(o, value, maxCycleCheckDepth)
	old := o.arrVal[index]
	o.arrVal[index] = value.Retain()
	old.Release()
	o.gen++
	return nil
}

// Index returns the element at index without changing ownership.
func (o *Object) Index(index int) (*Object, liberr.Error) {
	if o == nil || o.kind != KindArray {
		return nil, typeMismatch(o, KindArray)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if index < 0 || index >= len(o.arrVal) {
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
	return o.arrVal[index], nil
}

// RemoveIndex deletes the element at index, shifting subsequent elements
// left (spec §8 "Array shift"), and releases it.
func (o *Object) RemoveIndex(index int) liberr.Error {
	if o == nil || o.kind != KindArray {
		return typeMismatch(o, KindArray)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if index < 0 || index >= len(o.arrVal) {
		return liberr.KindInvalidArguments.Error(nil)
	}
	old := o.arrVal[index]
	o.arrVal = append(o.arrVal[:index], o.arrVal[index+1:]...)
	old.Release()
	o.gen++
	return nil
}

// Elements returns a snapshot slice of the array's children, in order.
// Ownership is not transferred; callers must not Release what they did not
// Retain.
func (o *Object) Elements() ([]*Object, liberr.Error) {
	if o == nil || o.kind != KindArray {
		return nil, typeMismatch(o, KindArray)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*Object, len(o.arrVal))
	copy(out, o.arrVal)
	return out, nil
}

// Get returns the value stored under key, or (nil, false) if absent.
func (o *Object) Get(key string) (*Object, bool) {
	if o == nil || o.kind != KindDictionary {
		return nil, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.dictVal[key]
	return v, ok
}

// SetKey stores value under key, retaining it and releasing any value it
// replaces. New keys are appended to the iteration order.
func (o *Object) SetKey(key string, value *Object) liberr.Error {
	if o == nil || o.kind != KindDictionary {
		return typeMismatch(o, KindDictionary)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	checkNoCycle(o, value, maxCycleCheckDepth)
	if old, ok := o.dictVal[key]; ok {
		old.Release()
	} else {
		o.dictKeys = append(o.dictKeys, key)
	}
	o.dictVal[key] = value.Retain()
	o.gen++
	return nil
}

// RemoveKey deletes key if present and releases its value.
func (o *Object) RemoveKey(key string) liberr.Error {
	if o == nil || o.kind != KindDictionary {
		return typeMismatch(o, KindDictionary)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	old, ok := o.dictVal[key]
	if !ok {
		return nil
	}
	old.Release()
	delete(o.dictVal, key)
	for i, k := range o.dictKeys {
		if k == key {
			o.dictKeys = append(o.dictKeys[:i], o.dictKeys[i+1:]...)
			break
		}
	}
	o.gen++
	return nil
}

// Keys returns the dictionary's keys in insertion order.
func (o *Object) Keys() ([]string, liberr.Error) {
	if o == nil || o.kind != KindDictionary {
		return nil, typeMismatch(o, KindDictionary)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, len(o.dictKeys))
	copy(out, o.dictKeys)
	return out, nil
}

// IterFunc is called once per entry during Range; returning false stops
// iteration early.
type IterFunc func(key string, index int, value *Object) bool

// Range walks an array or dictionary in iteration order, calling fn for
// each entry. If the container is mutated by another goroutine while Range
// is in progress, it aborts and returns a concurrent-mutation error (spec
// §4.1) rather than racing the mutation.
func (o *Object) Range(fn IterFunc) liberr.Error {
	if o == nil {
		return typeMismatch(o, KindArray)
	}
	o.mu.RLock()
	gen := o.gen
	kind := o.kind
	var keys []string
	var arr []*Object
	switch kind {
	case KindArray:
		arr = o.arrVal
	case KindDictionary:
		keys = o.dictKeys
	default:
		o.mu.RUnlock()
		return typeMismatch(o, KindArray)
	}
	o.mu.RUnlock()

	switch kind {
	case KindArray:
		for i, v := range arr {
			if o.generationChanged(gen) {
				return liberr.KindConcurrentMutation.Error(nil)
			}
			if !fn("", i, v) {
				return nil
			}
		}
	case KindDictionary:
		for i, k := range keys {
			if o.generationChanged(gen) {
				return liberr.KindConcurrentMutation.Error(nil)
			}
			v, ok := o.Get(k)
			if !ok {
				return liberr.KindConcurrentMutation.Error(nil)
			}
			if !fn(k, i, v) {
				return nil
			}
		}
	}
	if o.generationChanged(gen) {
		return liberr.KindConcurrentMutation.Error(nil)
	}
	return nil
}

func (o *Object) generationChanged(seen uint64) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.gen != seen
}
