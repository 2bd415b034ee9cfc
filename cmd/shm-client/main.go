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

// Command shm-client mirrors original_source/examples/shm-client: it
// allocates a shared memory region, fills it, sends it as a call
// argument over a descriptor-capable unix socket transport, and prints
// the region's contents before and after the remote side touches it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opsnet/rpcgo/client"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/rpcctx"
	"github.com/opsnet/rpcgo/server"
	"github.com/opsnet/rpcgo/shmem"
	_ "github.com/opsnet/rpcgo/transport/unixsock"
)

const blockSize = 1024 * 1024

func main() {
	uri := flag.String("uri", "", "server socket URI (a unix:// socket is created in a temp dir if empty)")
	flag.Parse()

	socketURI := *uri
	if socketURI == "" {
		dir, err := os.MkdirTemp("", "shm-client")
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create temp dir:", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
		socketURI = "unix://" + filepath.Join(dir, "sock")
	}

	ctx := rpcctx.New()
	defer ctx.Release()
	ctx.RegisterInstance("/", nil)
	iface, _ := ctx.RegisterInterface("/", "")
	iface.RegisterMethod(&rpcctx.Method{
		Name: "exchange_blob",
		Kind: rpcctx.MethodSingle,
		Single: func(_ context.Context, args *object.Object) (*object.Object, liberr.Error) {
			blob, ierr := args.Index(0)
			if ierr != nil {
				return nil, ierr
			}
			m, err := shmem.Map(blob)
			if err != nil {
				return nil, err
			}
			defer m.Unmap()
			data := m.Bytes()
			for i := range data {
				data[i] = 'B'
			}
			return object.NewString("exchanged"), nil
		},
	})

	srv, err := server.Listen(context.Background(), socketURI, ctx, server.Options{Codec: "msgpack"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot listen:", err)
		os.Exit(1)
	}
	defer srv.Close()

	cl, err := client.Dial(context.Background(), srv.URI(), client.Options{Codec: "msgpack"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot connect:", err)
		os.Exit(1)
	}
	defer cl.Close()

	blob, err := shmem.Allocate(blockSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot allocate shared memory:", err)
		os.Exit(1)
	}
	defer shmem.Destroy(blob)
	defer blob.Release()

	mapping, err := shmem.Map(blob)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot map shared memory:", err)
		os.Exit(1)
	}
	data := mapping.Bytes()
	for i := range data {
		data[i] = 'A'
	}
	fmt.Printf("memory before: %.16s\n", data)

	args, err := object.Pack("[v]", blob)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot pack args:", err)
		os.Exit(1)
	}
	defer args.Release()

	call, err := cl.Call("/", "", "exchange_blob", args)
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
	fmt.Printf("memory after: %.16s\n", data)

	mapping.Unmap()
}
