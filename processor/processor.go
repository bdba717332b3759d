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

package processor

import (
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

// Processor is a named unit of work a worker runs for one task of a batch.
type Processor interface {
	Process(ctx *taskcontext.TaskContext) (*ProcessResult, error)
}

// ProcessFunc adapts an ordinary function to the Processor interface.
type ProcessFunc func(ctx *taskcontext.TaskContext) (*ProcessResult, error)

func (f ProcessFunc) Process(ctx *taskcontext.TaskContext) (*ProcessResult, error) {
	return f(ctx)
}
