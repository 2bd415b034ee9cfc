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
	"bytes"

	"github.com/ugorji/go/codec"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// msgpackCodec is the mandatory `msgpack` backend (spec §4.2). Like yaml,
// it round-trips fd/shmem placeholders and binary payloads losslessly.
type msgpackCodec struct {
	h *codec.MsgpackHandle
}

func newMsgpackCodec() *msgpackCodec {
	h := &codec.MsgpackHandle{}
	h.StructToArray = false
	return &msgpackCodec{h: h}
}

func (c *msgpackCodec) Name() string { return "msgpack" }

func (c *msgpackCodec) Dump(o *object.Object) ([]byte, []OOBAttachment, liberr.Error) {
	var attachments []OOBAttachment
	w, err := toWire(o, true, &attachments)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, c.h)
	if encErr := enc.Encode(w); encErr != nil {
		return nil, nil, liberr.KindInternal.Error(encErr)
	}
	return buf.Bytes(), attachments, nil
}

func (c *msgpackCodec) Load(data []byte, attachments []OOBAttachment) (*object.Object, liberr.Error) {
	var w wireNode
	dec := codec.NewDecoder(bytes.NewReader(data), c.h)
	if decErr := dec.Decode(&w); decErr != nil {
		return nil, liberr.KindInvalidArguments.Error(decErr)
	}
	return fromWire(&w, attachments)
}
