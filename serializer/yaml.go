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
	"gopkg.in/yaml.v3"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// yamlCodec is the mandatory `yaml` backend, grounded on the teacher's
// own gopkg.in/yaml.v3 dependency. Like msgpack it carries fd/shmem
// placeholders and binary payloads (yaml.v3 base64-encodes []byte).
type yamlCodec struct{}

func newYAMLCodec() *yamlCodec { return &yamlCodec{} }

func (c *yamlCodec) Name() string { return "yaml" }

func (c *yamlCodec) Dump(o *object.Object) ([]byte, []OOBAttachment, liberr.Error) {
	var attachments []OOBAttachment
	w, err := toWire(o, true, &attachments)
	if err != nil {
		return nil, nil, err
	}
	b, yerr := yaml.Marshal(w)
	if yerr != nil {
		return nil, nil, liberr.KindInternal.Error(yerr)
	}
	return b, attachments, nil
}

func (c *yamlCodec) Load(data []byte, attachments []OOBAttachment) (*object.Object, liberr.Error) {
	var w wireNode
	if yerr := yaml.Unmarshal(data, &w); yerr != nil {
		return nil, liberr.KindInvalidArguments.Error(yerr)
	}
	return fromWire(&w, attachments)
}
