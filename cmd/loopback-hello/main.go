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

// Command loopback-hello mirrors original_source/examples/loopback: one
// process, one Context registering a "hello" method, one in-process
// client/server pair calling it and printing the result.
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
	"github.com/opsnet/rpcgo/transport/loopback"
)

func main() {
	ctx := rpcctx.New()
	defer ctx.Release()

	ctx.RegisterInstance("/", nil)
	iface, _ := ctx.RegisterInterface("/", "")
	iface.RegisterMethod(&rpcctx.Method{
		Name: "hello",
		Kind: rpcctx.MethodSingle,
		Single: func(_ context.Context, args *object.Object) (*object.Object, liberr.Error) {
			name, _ := args.String()
			return object.NewString(name), nil
		},
	})

	serverSide, clientSide := loopback.Pair("0")
	server := connection.New(serverSide, "msgpack")
	defer server.Close()
	server.RegisterContext(ctx)

	client := connection.New(clientSide, "msgpack")
	defer client.Close()

	args := object.NewString("world")
	defer args.Release()

	call, err := client.Call("/", "", "hello", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot call:", err)
		os.Exit(1)
	}
	if _, timedOut := call.Wait(time.Now().Add(5 * time.Second)); timedOut {
		fmt.Fprintln(os.Stderr, "call timed out")
		os.Exit(1)
	}
	result, _ := call.Result().String()
	fmt.Printf("result = %s\n", result)
}
