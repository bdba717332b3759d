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

package taskcontext

import (
	"context"

	"github.com/tidwall/gjson"
)

var _ context.Context = &TaskContext{}

// TaskContext carries one task invocation to its processor.
type TaskContext struct {
	context.Context

	key      string
	taskName string
	args     []gjson.Result

	// host name of the worker running the task
	hostname   string
	workerAddr string
}

func NewTaskContext(ctx context.Context) *TaskContext {
	return &TaskContext{Context: ctx}
}

func (t *TaskContext) Key() string {
	return t.key
}

func (t *TaskContext) SetKey(key string) {
	t.key = key
}

func (t *TaskContext) TaskName() string {
	return t.taskName
}

func (t *TaskContext) SetTaskName(taskName string) {
	t.taskName = taskName
}

func (t *TaskContext) Args() []gjson.Result {
	return t.args
}

func (t *TaskContext) SetArgs(args []gjson.Result) {
	t.args = args
}

// Arg returns the i-th positional argument, or a zero Result when there is none.
func (t *TaskContext) Arg(i int) gjson.Result {
	if i < 0 || i >= len(t.args) {
		return gjson.Result{}
	}
	return t.args[i]
}

func (t *TaskContext) NumArgs() int {
	return len(t.args)
}

func (t *TaskContext) Hostname() string {
	return t.hostname
}

func (t *TaskContext) SetHostname(hostname string) {
	t.hostname = hostname
}

func (t *TaskContext) WorkerAddr() string {
	return t.workerAddr
}

func (t *TaskContext) SetWorkerAddr(workerAddr string) {
	t.workerAddr = workerAddr
}
