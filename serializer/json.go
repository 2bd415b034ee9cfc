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

package serializer

import (
	"encoding/json"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// jsonCodec is the mandatory `json` backend. Binary payloads round-trip
// as base64 (encoding/json's native []byte handling); fd and shmem are
// refused outright since JSON has no out-of-band channel to resolve them
// against (spec §4.2).
type jsonCodec struct{}

func newJSONCodec() *jsonCodec { return &jsonCodec{} }

func (c *jsonCodec) Name() string { return "json" }

func (c *jsonCodec) Dump(o *object.Object) ([]byte, []OOBAttachment, liberr.Error) {
	w, err := toWire(o, false, nil)
	if err != nil {
		return nil, nil, err
	}
	b, jerr := json.Marshal(w)
	if jerr != nil {
		return nil, nil, liberr.KindInternal.Error(jerr)
	}
	return b, nil, nil
}

func (c *jsonCodec) Load(data []byte, _ []OOBAttachment) (*object.Object, liberr.Error) {
	var w wireNode
	if jerr := json.Unmarshal(data, &w); jerr != nil {
		return nil, liberr.KindInvalidArguments.Error(jerr)
	}
	return fromWire(&w, nil)
}
