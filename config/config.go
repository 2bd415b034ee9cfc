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

// Package config is the process-level settings loader for the `cmd/`
// programs (SPEC_FULL.md §2): listen/dial URI, payload codec, default
// prefetch credit and TLS options, read via spf13/viper and grounded on
// nabbar-golib/config's viper-backed component pattern.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/nabbar/golib/certificates"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/logger"
)

// Config is one process's settings, as loaded from a YAML/JSON/TOML
// file (any format viper's decoder recognizes by extension).
type Config struct {
	v *viper.Viper
}

// Default returns a Config seeded with this module's own defaults
// (spec §6: msgpack wire codec, prefetch 16).
func Default() *Config {
	v := viper.New()
	v.SetDefault("uri", "loopback://default")
	v.SetDefault("codec", "msgpack")
	v.SetDefault("prefetch", 16)
	v.SetDefault("log.level", "info")
	v.SetDefault("tls.enabled", false)
	return &Config{v: v}
}

// Load reads path into a Config seeded with Default's values, so an
// incomplete config file still yields a runnable set of settings.
func Load(path string) (*Config, liberr.Error) {
	c := Default()
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return nil, liberr.KindInvalidArguments.Error(err)
	}
	return c, nil
}

// URI is the listen or dial address this process uses (e.g.
// "tcp://0.0.0.0:9000", "unix:///run/rpcgo.sock", "bus://worker").
func (c *Config) URI() string { return c.v.GetString("uri") }

// Codec is the negotiated payload serializer name (spec §6: defaults to
// "msgpack").
func (c *Config) Codec() string { return c.v.GetString("codec") }

// Prefetch is the default streaming-call prefetch credit (spec §4.5).
func (c *Config) Prefetch() int32 { return int32(c.v.GetInt("prefetch")) }

// LogLevel is the configured logger.Level, parsed from the "log.level"
// key (e.g. "debug", "warn").
func (c *Config) LogLevel() logger.Level {
	return logger.ParseLevel(strings.ToLower(c.v.GetString("log.level")))
}

// NATSURL is the broker address used by the bus transport and rpcd
// (spec §6 "bus://" scheme). It returns "" when nats_url is unset;
// rpcd.New, bus.Enumerate and bus.Ping treat "" as nats.DefaultURL.
func (c *Config) NATSURL() string { return c.v.GetString("nats_url") }

// TLSEnabled reports whether tcp/ws dialing and listening should
// negotiate TLS.
func (c *Config) TLSEnabled() bool { return c.v.GetBool("tls.enabled") }

// TLS builds a certificates.TLSConfig from the "tls.cert"/"tls.key"
// settings, or a bare default TLSConfig if none are set (client-only,
// no client certificate).
func (c *Config) TLS() (certificates.TLSConfig, liberr.Error) {
	t := certificates.New()
	crt := c.v.GetString("tls.cert")
	key := c.v.GetString("tls.key")
	if crt == "" || key == "" {
		return t, nil
	}
	if err := t.AddCertificatePairFile(key, crt); err != nil {
		return nil, liberr.KindInvalidArguments.Error(err)
	}
	return t, nil
}
