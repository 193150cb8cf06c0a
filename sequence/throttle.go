// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"sync"
	"sync/atomic"
)

// throttle limits the number of concurrently running goroutines and
// remembers the first error reported.
type throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	err       atomic.Value
	setupOnce sync.Once
	errorOnce sync.Once
}

func (t *throttle) Acquire() {
	t.setupOnce.Do(func() { t.ch = make(chan bool, t.Max) })
	t.wg.Add(1)
	t.ch <- true
}

func (t *throttle) Release() {
	t.wg.Done()
	<-t.ch
}

func (t *throttle) Report(err error) {
	if err != nil {
		t.errorOnce.Do(func() { t.err.Store(err) })
	}
}

func (t *throttle) Err() error {
	err, _ := t.err.Load().(error)
	return err
}

func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}

// Go runs f in a new goroutine once a slot is free.
func (t *throttle) Go(f func() error) {
	t.Acquire()
	go func() {
		defer t.Release()
		t.Report(f())
	}()
}

// ParallelMap returns fn(0), ..., fn(n-1), evaluated by at most
// workers goroutines. Units not yet started when an error occurs are
// skipped, and the first error is returned.
//
// fn must only read data that no other unit mutates; pass each unit
// its own window or matrix copy.
func ParallelMap[R any](n, workers int, fn func(i int) (R, error)) ([]R, error) {
	out := make([]R, n)
	if workers <= 1 {
		for i := range out {
			r, err := fn(i)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	t := throttle{Max: workers}
	for i := 0; i < n && t.Err() == nil; i++ {
		i := i
		t.Go(func() error {
			if t.Err() != nil {
				return nil
			}
			r, err := fn(i)
			out[i] = r
			return err
		})
	}
	if err := t.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
