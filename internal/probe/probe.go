// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package probe checks the managed process's liveness with the
// four-letter-word protocol: send "ruok", expect "imok".
package probe

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"
)

// Status is the classification of a liveness check.
type Status int

const (
	// NotRunning means no TCP connection could be established.
	NotRunning Status = iota
	// Running means the process answered with the affirmative token.
	Running
	// Broken means the process accepted the connection but did not answer
	// with the affirmative token in time.
	Broken
)

// String returns the status name used in logs, metrics and CLI output.
func (s Status) String() string {
	switch s {
	case NotRunning:
		return "not_running"
	case Running:
		return "running"
	case Broken:
		return "broken"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Protocol defaults.
const (
	DefaultDialTimeout = 1 * time.Second
	DefaultAttempts    = 10
	DefaultInterval    = 100 * time.Millisecond
)

var (
	// Command is the liveness request.
	Command = []byte("ruok")
	// Affirmative is the response of a healthy process.
	Affirmative = []byte("imok")
)

// tokenLen is the size of both request and response tokens.
const tokenLen = 4

// Result describes one liveness check.
type Result struct {
	Status   Status
	Attempts int
	Response []byte
	Elapsed  time.Duration
	// Err is the last transport error seen, if any. It is informational:
	// it has already been folded into Status.
	Err error
}

// Prober performs liveness checks. The zero value is not usable; use
// NewProber.
type Prober struct {
	dialTimeout time.Duration
	attempts    int
	interval    time.Duration
	dial        func(network, address string, timeout time.Duration) (net.Conn, error)
}

// NewProber creates a prober with the protocol defaults: 1s connect
// timeout, 10 read attempts, 100ms per attempt.
func NewProber() *Prober {
	return &Prober{
		dialTimeout: DefaultDialTimeout,
		attempts:    DefaultAttempts,
		interval:    DefaultInterval,
		dial:        net.DialTimeout,
	}
}

// WithTiming overrides the connect timeout, attempt budget and per-attempt wait.
func (p *Prober) WithTiming(dialTimeout time.Duration, attempts int, interval time.Duration) *Prober {
	p.dialTimeout = dialTimeout
	p.attempts = attempts
	p.interval = interval
	return p
}

// Check connects to host:port, sends the command token and classifies the
// reply. It never returns an error; transport problems become NotRunning
// (no connection) or Broken (connection but no affirmative reply).
//
// Each read attempt waits at most one interval for bytes and reads up to
// four bytes into the accumulator. The loop ends early once four bytes
// have arrived, the peer closes, or a non-timeout error occurs. There is
// no cancellation; callers needing it run Check on their own goroutine.
func (p *Prober) Check(host string, port int) Result {
	start := time.Now()
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := p.dial("tcp", addr, p.dialTimeout)
	if err != nil {
		return Result{Status: NotRunning, Elapsed: time.Since(start), Err: err}
	}
	defer conn.Close()

	if _, err := conn.Write(Command); err != nil {
		return Result{Status: Broken, Elapsed: time.Since(start), Err: err}
	}

	var (
		acc      []byte
		buf      = make([]byte, tokenLen)
		attempts int
		lastErr  error
	)

	for attempts < p.attempts && len(acc) < tokenLen {
		attempts++

		deadline := time.Now().Add(p.interval)
		if err := conn.SetReadDeadline(deadline); err != nil {
			lastErr = err
			break
		}

		n, err := conn.Read(buf)
		acc = append(acc, buf[:n]...)

		if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		// A closed or failed connection returns at once; the attempt
		// still takes its full interval so the loop runs to completion.
		if !errors.Is(err, io.EOF) {
			lastErr = err
		}
		if len(acc) < tokenLen {
			time.Sleep(time.Until(deadline))
		}
	}

	status := Broken
	if bytes.Equal(acc, Affirmative) {
		status = Running
	}

	return Result{
		Status:   status,
		Attempts: attempts,
		Response: acc,
		Elapsed:  time.Since(start),
		Err:      lastErr,
	}
}

var defaultProber = NewProber()

// Probe checks host:port with the protocol defaults and returns the status.
func Probe(host string, port int) Status {
	return defaultProber.Check(host, port).Status
}
