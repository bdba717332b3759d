/*
 * Copyright (c) 2023 Alibaba Group Holding Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package distributed

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

type FutureStatus int32

const (
	FuturePending FutureStatus = iota
	FutureFinished
	FutureError
	FutureLost
)

func (s FutureStatus) String() string {
	switch s {
	case FuturePending:
		return "pending"
	case FutureFinished:
		return "finished"
	case FutureError:
		return "error"
	case FutureLost:
		return "lost"
	}
	return "unknown"
}

// Future is the handle of one submitted task.
type Future struct {
	key string

	lock      sync.Mutex
	status    FutureStatus
	result    gjson.Result
	worker    string
	err       error
	done      chan struct{}
	callbacks []func(*Future)
}

func newFuture(key string) *Future {
	return &Future{
		key:  key,
		done: make(chan struct{}),
	}
}

func (f *Future) Key() string {
	return f.key
}

func (f *Future) Status() FutureStatus {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.status
}

// Done is closed once the future leaves the pending status.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Worker is the address of the worker that reported the outcome, if any.
func (f *Future) Worker() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.worker
}

// Result waits for the task to finish and returns its result. A failed task yields a
// *TaskError; a task whose client went away yields ErrClientClosed or ErrConnectionLost.
func (f *Future) Result(ctx context.Context) (string, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.result.String(), nil
}

// complete moves the future out of pending. Later calls are ignored.
func (f *Future) complete(status FutureStatus, result gjson.Result, worker string, err error) bool {
	f.lock.Lock()
	if f.status != FuturePending {
		f.lock.Unlock()
		return false
	}
	f.status = status
	f.result = result
	f.worker = worker
	f.err = err
	close(f.done)
	callbacks := f.callbacks
	f.callbacks = nil
	f.lock.Unlock()

	for _, cb := range callbacks {
		cb(f)
	}
	return true
}

// addDoneCallback runs cb when the future completes, or right away if it already has.
func (f *Future) addDoneCallback(cb func(*Future)) {
	f.lock.Lock()
	if f.status == FuturePending {
		f.callbacks = append(f.callbacks, cb)
		f.lock.Unlock()
		return
	}
	f.lock.Unlock()
	cb(f)
}

// AsCompleted yields every distinct future of futures exactly once, in the order they
// complete. The channel is closed after the last one.
func AsCompleted(futures []*Future) <-chan *Future {
	seen := make(map[*Future]struct{}, len(futures))
	unique := make([]*Future, 0, len(futures))
	for _, f := range futures {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}

	ch := make(chan *Future, len(unique))
	if len(unique) == 0 {
		close(ch)
		return ch
	}
	total := int32(len(unique))
	yielded := atomic.NewInt32(0)
	for _, f := range unique {
		f.addDoneCallback(func(f *Future) {
			ch <- f
			if yielded.Inc() == total {
				close(ch)
			}
		})
	}
	return ch
}
