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

// schemaRegistry backs the `<name>tok` pack/unpack template form: a named
// schema is a template string registered once, referenced by name from
// other templates and parsed wherever it is used, the way a struct tag set
// is reused across calls.
var schemaRegistry = struct {
	mu sync.RWMutex
	m  map[string]string
}{m: make(map[string]string)}

// RegisterSchema associates name with a pack/unpack template string so it
// can be referenced from another template as `<name>`. Re-registering a
// name replaces its template.
func RegisterSchema(name string, template string) {
	schemaRegistry.mu.Lock()
	defer schemaRegistry.mu.Unlock()
	schemaRegistry.m[name] = template
}

// LookupSchema resolves a registered template by name.
func LookupSchema(name string) (string, liberr.Error) {
	schemaRegistry.mu.RLock()
	defer schemaRegistry.mu.RUnlock()
	t, ok := schemaRegistry.m[name]
	if !ok {
		return "", liberr.KindNotFound.Error(nil)
	}
	return t, nil
}

// UnregisterSchema removes a registered template, if present.
func UnregisterSchema(name string) {
	schemaRegistry.mu.Lock()
	defer schemaRegistry.mu.Unlock()
	delete(schemaRegistry.m, name)
}
