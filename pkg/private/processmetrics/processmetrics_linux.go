// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

package processmetrics

import (
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

type sample struct {
	running  uint64
	runnable uint64
}

type thread struct {
	tid  int
	base sample
}

// Collector collects the scheduler statistics of tracked threads. It is
// safe for concurrent use.
type Collector struct {
	pid int
	fs  procfs.FS

	mtx     sync.Mutex
	threads map[string]thread
}

// NewCollector creates a collector for the current process.
func NewCollector() (*Collector, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, serrors.Wrap("opening procfs", err)
	}
	return &Collector{
		pid:     os.Getpid(),
		fs:      fs,
		threads: make(map[string]thread),
	}, nil
}

// TrackCurrentThread attributes the calling OS thread to the named worker
// until the returned function is called. The caller must have locked its
// goroutine to the thread.
func (c *Collector) TrackCurrentThread(name string) func() {
	tid := unix.Gettid()
	base, _ := c.read(tid)
	c.mtx.Lock()
	c.threads[name] = thread{tid: tid, base: base}
	c.mtx.Unlock()
	return func() {
		c.mtx.Lock()
		defer c.mtx.Unlock()
		if t, ok := c.threads[name]; ok && t.tid == tid {
			delete(c.threads, name)
		}
	}
}

func (c *Collector) read(tid int) (sample, error) {
	p, err := c.fs.Thread(c.pid, tid)
	if err != nil {
		return sample{}, err
	}
	s, err := p.Schedstat()
	if err != nil {
		return sample{}, err
	}
	return sample{running: s.RunningNanoseconds, runnable: s.WaitingNanoseconds}, nil
}

// Collect implements prometheus.Collector. Threads whose statistics cannot
// be read are skipped.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mtx.Lock()
	threads := make(map[string]thread, len(c.threads))
	for name, t := range c.threads {
		threads[name] = t
	}
	c.mtx.Unlock()

	for name, t := range threads {
		s, err := c.read(t.tid)
		if err != nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(runningTime, prometheus.CounterValue,
			seconds(s.running-t.base.running), name)
		ch <- prometheus.MustNewConstMetric(runnableTime, prometheus.CounterValue,
			seconds(s.runnable-t.base.runnable), name)
	}
}

func seconds(ns uint64) float64 {
	return float64(ns) / 1e9
}
