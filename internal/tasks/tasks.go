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

package tasks

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
	"github.com/batch-workshop/mnp-hello/tracer"
)

var (
	taskMap *TaskMap
	once    sync.Once

	ErrTaskNotFound = errors.New("task not found")
	ErrNilResult    = errors.New("result can't be null")
)

// PanicError is returned by Run when a processor panics.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panic: %v", e.Value)
}

type TaskMap struct {
	tasks  sync.Map // map[string]processor.Processor
	tracer tracer.Tracer
}

type Option func(*TaskMap)

// WithTracer overrides the process-wide tracer for this map.
func WithTracer(t tracer.Tracer) Option {
	return func(tm *TaskMap) {
		tm.tracer = t
	}
}

func NewTaskMap(opts ...Option) *TaskMap {
	tm := &TaskMap{tasks: sync.Map{}}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// GetTaskMap returns the process-wide task map.
func GetTaskMap() *TaskMap {
	once.Do(func() {
		taskMap = NewTaskMap()
	})
	return taskMap
}

func (tl *TaskMap) Register(name string, task processor.Processor) {
	tl.tasks.Store(name, task)
}

func (tl *TaskMap) Find(name string) (processor.Processor, bool) {
	task, ok := tl.tasks.Load(name)
	if ok && task != nil {
		return task.(processor.Processor), ok
	}
	return nil, false
}

// Names lists the registered task names in no particular order.
func (tl *TaskMap) Names() []string {
	names := make([]string, 0)
	tl.tasks.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}

// Run executes the processor registered under ctx.TaskName(). A returned error means the task
// failed; a processor that reports InstanceStatusFailed without an error is failed too.
func (tl *TaskMap) Run(ctx *taskcontext.TaskContext) (ret *processor.ProcessResult, err error) {
	taskName := ctx.TaskName()
	task, ok := tl.Find(taskName)
	if !ok {
		return processor.NewProcessResult(processor.WithFailed()),
			fmt.Errorf("%w: taskName=%s, maybe forgot to register it by the client", ErrTaskNotFound, taskName)
	}

	defer func() {
		if e := recover(); e != nil {
			stack := debug.Stack()
			logger.Errorf("Process task panic, key=%s, error=%v, stack=%s", ctx.Key(), e, stack)
			ret = processor.NewProcessResult(processor.WithFailed(), processor.WithResult(fmt.Sprint(e)))
			err = &PanicError{Value: e, Stack: stack}
		}
	}()

	t := tl.tracer
	if t == nil {
		t = tracer.GetTracer()
	}
	ret, err = tracer.Trace(t, ctx, task.Process)
	if err != nil {
		logger.Debugf("Process task=%s failed, key=%s, err=%s", taskName, ctx.Key(), err.Error())
		return ret, err
	}
	if ret == nil {
		return processor.NewProcessResult(processor.WithFailed(), processor.WithResult(ErrNilResult.Error())), ErrNilResult
	}
	if ret.Status() == processor.InstanceStatusFailed {
		return ret, fmt.Errorf("process task=%s failed, result=%s", taskName, ret.Result())
	}
	return ret, nil
}
