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
	"strconv"
	"strings"

	"github.com/opsnet/rpcgo/object"
)

// splitPath breaks a dotted path ("a.b.2.c") into its components.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// isArrayIndex reports whether a path component addresses an array
// element rather than a dictionary key.
func isArrayIndex(component string) (int, bool) {
	i, err := strconv.Atoi(component)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// resolve walks root along components, returning the addressed Object.
// ok is false if any component is missing or the container kind at a step
// doesn't match the component's shape (integer vs. string).
func resolve(root *object.Object, components []string) (*object.Object, bool) {
	if root == nil {
		return nil, false
	}
	cur := root
	for _, comp := range components {
		if cur == nil {
			return nil, false
		}
		if idx, isIdx := isArrayIndex(comp); isIdx {
			if cur.Kind() != object.KindArray {
				return nil, false
			}
			v, err := cur.Index(idx)
			if err != nil {
				return nil, false
			}
			cur = v
		} else {
			if cur.Kind() != object.KindDictionary {
				return nil, false
			}
			v, ok := cur.Get(comp)
			if !ok {
				return nil, false
			}
			cur = v
		}
	}
	return cur, true
}
