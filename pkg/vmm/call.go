/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package vmm

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// inflight counts the libvirt calls that have not returned yet, including the ones call stopped waiting for.
type inflight struct {
	n atomic.Int64
}

func (f *inflight) running() int64 {
	if f == nil {
		return 0
	}
	return f.n.Load()
}

// call runs fn and returns its result, or gives up once timeout elapses or ctx is done.
//
// libvirt calls cannot be interrupted: an abandoned fn keeps running in its goroutine until libvirt returns, and stays
// counted in calls until then. calls may be nil.
func call[T any](ctx context.Context, calls *inflight, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}

	if calls != nil {
		calls.n.Add(1)
	}

	ch := make(chan result, 1)
	go func() {
		if calls != nil {
			defer calls.n.Add(-1)
		}
		v, err := fn()
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errors.Join(ctx.Err(), ErrTimeout)
		}
		return zero, ctx.Err()
	}
}
