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
	"github.com/asynkron/protoactor-go/actor"
	"github.com/tidwall/gjson"

	"github.com/batch-workshop/mnp-hello/logger"
)

type registerFutures struct {
	futures []*Future
}

type releaseFutures struct {
	keys []string
	err  error
}

type taskFinished struct {
	key    string
	result gjson.Result
	worker string
}

type taskErred struct {
	key       string
	exception string
	traceback string
	worker    string
}

type streamClosed struct {
	err error
}

// eventRouter owns the table of pending futures. Futures are completed from its mailbox only,
// so they complete in the order the scheduler's events arrive.
type eventRouter struct {
	futures   map[string]*Future
	closedErr error
}

func newEventRouter() *eventRouter {
	return &eventRouter{
		futures: make(map[string]*Future),
	}
}

func (r *eventRouter) Receive(actorCtx actor.Context) {
	switch msg := actorCtx.Message().(type) {
	case *actor.Started, *actor.Stopping, *actor.Restarting:
	case *actor.Stopped:
		r.failAll(ErrClientClosed)
	case *registerFutures:
		r.handleRegister(msg)
	case *taskFinished:
		if f := r.take(msg.key); f != nil {
			f.complete(FutureFinished, msg.result, msg.worker, nil)
		}
	case *taskErred:
		if f := r.take(msg.key); f != nil {
			f.complete(FutureError, gjson.Result{}, msg.worker, &TaskError{
				Key:       msg.key,
				Exception: msg.exception,
				Traceback: msg.traceback,
				Worker:    msg.worker,
			})
		}
	case *releaseFutures:
		for _, key := range msg.keys {
			if f := r.take(key); f != nil {
				f.complete(FutureLost, gjson.Result{}, "", msg.err)
			}
		}
	case *streamClosed:
		if r.closedErr == nil {
			r.closedErr = msg.err
		}
		r.failAll(r.closedErr)
	default:
		logger.Warnf("[eventRouter] receive unknown message, msg=%+v", actorCtx.Message())
	}
}

func (r *eventRouter) handleRegister(msg *registerFutures) {
	for _, f := range msg.futures {
		if r.closedErr != nil {
			f.complete(FutureLost, gjson.Result{}, "", r.closedErr)
			continue
		}
		r.futures[f.Key()] = f
	}
}

func (r *eventRouter) take(key string) *Future {
	f, ok := r.futures[key]
	if !ok {
		logger.Debugf("[eventRouter] no pending future for key=%s", key)
		return nil
	}
	delete(r.futures, key)
	return f
}

func (r *eventRouter) failAll(err error) {
	for key, f := range r.futures {
		f.complete(FutureLost, gjson.Result{}, "", err)
		delete(r.futures, key)
	}
}
