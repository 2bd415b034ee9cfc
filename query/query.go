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

package query

import (
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// Get returns the Object addressed by path within root, or def if the
// path does not resolve. Get never mutates root.
func Get(root *object.Object, path string, def *object.Object) *object.Object {
	v, ok := resolve(root, splitPath(path))
	if !ok {
		return def
	}
	return v
}

// Contains reports whether path resolves to an entry in root.
func Contains(root *object.Object, path string) bool {
	_, ok := resolve(root, splitPath(path))
	return ok
}

// Set writes value at path within root. When createMissing is true,
// absent intermediate levels are materialised: a path component that
// parses as a non-negative integer creates an array, otherwise a
// dictionary. Setting twice with the same arguments is idempotent (spec
// §8): the second call overwrites the same leaf with the same value.
func Set(root *object.Object, path string, value *object.Object, createMissing bool) liberr.Error {
	components := splitPath(path)
	if len(components) == 0 {
		return liberr.KindInvalidArguments.Error(nil)
	}
	return setAt(root, components, value, createMissing)
}

func setAt(container *object.Object, components []string, value *object.Object, createMissing bool) liberr.Error {
	if container == nil {
		return liberr.KindNotFound.Error(nil)
	}
	comp := components[0]
	rest := components[1:]

	idx, isIdx := isArrayIndex(comp)

	if len(rest) == 0 {
		if isIdx {
			if container.Kind() != object.KindArray {
				return liberr.KindTypeMismatch.Error(nil)
			}
			if err := growArray(container, idx, createMissing); err != nil {
				return err
			}
			return container.SetIndex(idx, value)
		}
		if container.Kind() != object.KindDictionary {
			return liberr.KindTypeMismatch.Error(nil)
		}
		return container.SetKey(comp, value)
	}

	nextIsArray := false
	if _, ok := isArrayIndex(rest[0]); ok {
		nextIsArray = true
	}

	var (
		child *object.Object
		err   liberr.Error
	)
	if isIdx {
		if container.Kind() != object.KindArray {
			return liberr.KindTypeMismatch.Error(nil)
		}
		if err = growArray(container, idx, createMissing); err != nil {
			return err
		}
		child, err = container.Index(idx)
		if err != nil {
			return err
		}
		if child.Kind() != object.KindArray && child.Kind() != object.KindDictionary {
			if !createMissing {
				return liberr.KindNotFound.Error(nil)
			}
			fresh := newContainer(nextIsArray)
			if err = container.SetIndex(idx, fresh); err != nil {
				fresh.Release()
				return err
			}
			fresh.Release()
			child = fresh
		}
	} else {
		if container.Kind() != object.KindDictionary {
			return liberr.KindTypeMismatch.Error(nil)
		}
		var ok bool
		child, ok = container.Get(comp)
		if !ok {
			if !createMissing {
				return liberr.KindNotFound.Error(nil)
			}
			fresh := newContainer(nextIsArray)
			if err = container.SetKey(comp, fresh); err != nil {
				fresh.Release()
				return err
			}
			fresh.Release()
			child = fresh
		}
	}

	return setAt(child, rest, value, createMissing)
}

func newContainer(isArray bool) *object.Object {
	if isArray {
		return object.NewArray()
	}
	return object.NewDictionary(nil, nil)
}

// growArray extends container (an array) with trailing nulls so that idx
// is a valid index, or fails with not-found if createMissing is false.
func growArray(container *object.Object, idx int, createMissing bool) liberr.Error {
	n, err := container.Length()
	if err != nil {
		return err
	}
	if idx < n {
		return nil
	}
	if !createMissing {
		return liberr.KindNotFound.Error(nil)
	}
	for n <= idx {
		filler := object.NewNull()
		if err := container.Append(filler); err != nil {
			filler.Release()
			return err
		}
		filler.Release()
		n++
	}
	return nil
}

// Delete removes the entry addressed by path. Deleting from an array
// shifts subsequent indices left (spec §8 "Array shift"); deleting from a
// dictionary leaves siblings untouched.
func Delete(root *object.Object, path string) liberr.Error {
	components := splitPath(path)
	if len(components) == 0 {
		return liberr.KindInvalidArguments.Error(nil)
	}
	parent, ok := resolve(root, components[:len(components)-1])
	if !ok {
		return liberr.KindNotFound.Error(nil)
	}
	last := components[len(components)-1]
	if idx, isIdx := isArrayIndex(last); isIdx {
		if parent.Kind() != object.KindArray {
			return liberr.KindTypeMismatch.Error(nil)
		}
		return parent.RemoveIndex(idx)
	}
	if parent.Kind() != object.KindDictionary {
		return liberr.KindTypeMismatch.Error(nil)
	}
	return parent.RemoveKey(last)
}
