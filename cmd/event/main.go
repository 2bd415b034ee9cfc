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

// Command event mirrors original_source/examples/event: a client
// subscribes to "server.hello" events, calls a method that triggers a
// broadcast, and prints what it receives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/opsnet/rpcgo/client"
	"github.com/opsnet/rpcgo/connection"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/rpcctx"
	"github.com/opsnet/rpcgo/serializer"
	"github.com/opsnet/rpcgo/server"
	_ "github.com/opsnet/rpcgo/transport/tcpsock"
)

func main() {
	uri := flag.String("uri", "tcp://127.0.0.1:5000", "server URI to listen on and dial")
	flag.Parse()

	ctx := rpcctx.New()
	defer ctx.Release()
	ctx.RegisterInstance("/", nil)
	iface, _ := ctx.RegisterInterface("/", "")

	srv, err := server.Listen(context.Background(), *uri, ctx, server.Options{Codec: "msgpack"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot listen:", err)
		os.Exit(1)
	}
	defer srv.Close()

	iface.RegisterMethod(&rpcctx.Method{
		Name: "event",
		Kind: rpcctx.MethodSingle,
		Single: func(_ context.Context, _ *object.Object) (*object.Object, liberr.Error) {
			greeting := object.NewString("hello from the server")
			srv.Broadcast("/", "", "server.hello", greeting)
			greeting.Release()
			return object.NewString("event sent"), nil
		},
	})

	cl, err := client.Dial(context.Background(), srv.URI(), client.Options{Codec: "msgpack"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot connect:", err)
		os.Exit(1)
	}
	defer cl.Close()

	eventName := "server.hello"
	done := make(chan struct{}, 1)
	_, err = cl.Subscribe(connection.EventPattern{Name: &eventName}, func(evPath, evIface, evName string, args *object.Object) {
		data, _, _ := serializer.Dump("json", args)
		fmt.Printf("received event %s with args: %s\n", evName, data)
		done <- struct{}{}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot subscribe:", err)
		os.Exit(1)
	}

	call, err := cl.Call("/", "", "event", nil)
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

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		fmt.Fprintln(os.Stderr, "event never arrived")
	}
}
