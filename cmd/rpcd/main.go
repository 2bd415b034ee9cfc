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

// Command rpcd is the bus-attached discovery daemon (SPEC_FULL.md §4.9,
// supplementing original_source/include/rpc/rpcd.h and
// examples/discovery/discovery.c): every bus-attached process registers
// its name here, and bus_enumerate/bus_ping (spec §6) resolve against
// this registry instead of a static file.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/opsnet/rpcgo/logger"
	"github.com/opsnet/rpcgo/rpcd"
)

func main() {
	natsURL := flag.String("nats-url", "", "NATS broker URL (defaults to nats.DefaultURL)")
	logLevel := flag.String("log-level", "info", "log level: panic|fatal|error|warn|info|debug")
	flag.Parse()

	log := logger.New()
	log.SetLevel(logger.ParseLevel(*logLevel))

	d, err := rpcd.New(*natsURL, log)
	if err != nil {
		log.Error("rpcd: failed to start", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer d.Close()

	log.Info("rpcd: listening", logger.Fields{"nats_url": d.NATSURL()})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
