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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

var _ processor.Processor = &Square{}

type Square struct{}

func (s *Square) Process(ctx *taskcontext.TaskContext) (*processor.ProcessResult, error) {
	n := ctx.Arg(0).Int()
	return processor.NewProcessResult(
		processor.WithSucceed(),
		processor.WithResult(fmt.Sprintf("%d", n*n)),
	), nil
}

// timingTracer logs how long each task took on its worker.
type timingTracer struct{}

type startKey struct{}

func (timingTracer) Start(ctx *taskcontext.TaskContext) *taskcontext.TaskContext {
	traced := taskcontext.NewTaskContext(context.WithValue(ctx.Context, startKey{}, time.Now()))
	traced.SetKey(ctx.Key())
	traced.SetTaskName(ctx.TaskName())
	traced.SetArgs(ctx.Args())
	traced.SetHostname(ctx.Hostname())
	traced.SetWorkerAddr(ctx.WorkerAddr())
	return traced
}

func (timingTracer) End(ctx *taskcontext.TaskContext, ret *processor.ProcessResult) *processor.ProcessResult {
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		logger.Debugf("Task key=%s ran on %s in %s", ctx.Key(), ctx.Hostname(), time.Since(start))
	}
	return ret
}
