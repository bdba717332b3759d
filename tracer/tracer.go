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

// Package tracer hooks task execution on the worker side. A tracer sees every task a worker
// runs from the task catalogue, before and after its processor.
package tracer

import (
	"sync"

	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

var (
	once   sync.Once
	tracer Tracer
)

// Tracer sees a task before and after it runs. Start may return a derived context that the
// processor and End receive; End may replace the result.
type Tracer interface {
	Start(ctx *taskcontext.TaskContext) *taskcontext.TaskContext
	End(ctx *taskcontext.TaskContext, ret *processor.ProcessResult) *processor.ProcessResult
}

// InitTracer installs the process-wide tracer, used by task maps that have none of their own.
// Only the first call has an effect.
func InitTracer(t Tracer) {
	once.Do(func() {
		tracer = t
	})
}

func GetTracer() Tracer {
	return tracer
}

// Trace runs process between t.Start and t.End. A nil t runs process as is.
func Trace(t Tracer, ctx *taskcontext.TaskContext, process func(*taskcontext.TaskContext) (*processor.ProcessResult, error)) (*processor.ProcessResult, error) {
	if t == nil {
		return process(ctx)
	}
	ctx = t.Start(ctx)
	ret, err := process(ctx)
	return t.End(ctx, ret), err
}
