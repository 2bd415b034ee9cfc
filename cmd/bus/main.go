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

// Command bus mirrors original_source/examples/bus: enumerate every
// service registered against rpcd and ping each one in turn.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/opsnet/rpcgo/transport/bus"
)

func main() {
	natsURL := flag.String("nats-url", "", "NATS broker URL (defaults to nats.DefaultURL)")
	timeout := flag.Duration("timeout", 2*time.Second, "enumerate/ping timeout")
	flag.Parse()

	names, err := bus.Enumerate(nil, *natsURL, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bus enumerate:", err)
		os.Exit(1)
	}

	for i, name := range names {
		fmt.Printf("%d: %s\n", i, name)
		if perr := bus.Ping(nil, *natsURL, name, *timeout); perr != nil {
			fmt.Printf("    failed to ping, error: %v\n", perr)
			continue
		}
		fmt.Println("    responds to ping")
	}
}
