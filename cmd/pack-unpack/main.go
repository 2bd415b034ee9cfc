/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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
 */

// Command pack-unpack mirrors original_source/examples/pack-unpack: a
// "hello" method that unpacks its argument tuple with object.Unpack,
// then packs a fresh dictionary as its reply, called over a loopback
// client/server pair.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opsnet/rpcgo/connection"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/rpcctx"
	"github.com/opsnet/rpcgo/serializer"
	"github.com/opsnet/rpcgo/transport/loopback"
)

func hello(_ context.Context, args *object.Object) (*object.Object, liberr.Error) {
	var (
		str      string
		num      int64
		sure     bool
		dictNum  int64
		nonexist *object.Object
	)
	cnt, err := object.Unpack(args, "[s,i,b,{nonexistent:v,key:i}]",
		&str, &num, &sure, &nonexist, &dictNum)
	if err != nil {
		return nil, err
	}
	if nonexist != nil {
		fmt.Println("nonexistent key shouldn't have unpacked to a non-nil object")
	}
	fmt.Printf("unpack count: %d\n", cnt)
	fmt.Printf("str = %s, num = %d, dict_num = %d, sure = %v\n", str, num, dictNum, sure)

	return object.Pack("{s,i,u,b,n,[i,i,i,{s}]}",
		"hello", "world",
		"int", int64(-12345),
		"uint", uint64(0x80808080),
		"true_or_false", true,
		"nothing", nil,
		"array",
		int64(1), int64(2), int64(3), "!", "?")
}

func main() {
	ctx := rpcctx.New()
	defer ctx.Release()

	ctx.RegisterInstance("/", nil)
	iface, _ := ctx.RegisterInterface("/", "")
	iface.RegisterMethod(&rpcctx.Method{
		Name:   "hello",
		Kind:   rpcctx.MethodSingle,
		Single: hello,
	})

	serverSide, clientSide := loopback.Pair("0")
	server := connection.New(serverSide, "msgpack")
	defer server.Close()
	server.RegisterContext(ctx)

	client := connection.New(clientSide, "msgpack")
	defer client.Close()

	keys := map[string]*object.Object{"key": object.NewInt64(11234)}
	dict := object.NewDictionary(keys, []string{"key"})
	keys["key"].Release()

	args, err := object.Pack("[s,i,b,v]", "world", int64(123), true, dict)
	dict.Release()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot pack args:", err)
		os.Exit(1)
	}
	defer args.Release()

	call, cerr := client.Call("/", "", "hello", args)
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "cannot call:", cerr)
		os.Exit(1)
	}
	if _, timedOut := call.Wait(time.Now().Add(5 * time.Second)); timedOut {
		fmt.Fprintln(os.Stderr, "call timed out")
		os.Exit(1)
	}

	data, _, derr := serializer.Dump("json", call.Result())
	if derr != nil {
		fmt.Fprintln(os.Stderr, "cannot describe result:", derr)
		os.Exit(1)
	}
	fmt.Printf("result = %s\n", data)
}
