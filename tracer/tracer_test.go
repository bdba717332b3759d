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

package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

type taggingTracer struct {
	ended []string
}

func (tt *taggingTracer) Start(ctx *taskcontext.TaskContext) *taskcontext.TaskContext {
	traced := taskcontext.NewTaskContext(ctx.Context)
	traced.SetKey(ctx.Key() + "/traced")
	return traced
}

func (tt *taggingTracer) End(ctx *taskcontext.TaskContext, ret *processor.ProcessResult) *processor.ProcessResult {
	tt.ended = append(tt.ended, ctx.Key())
	if ret == nil {
		return nil
	}
	return processor.NewProcessResult(processor.WithStatus(ret.Status()), processor.WithResult(ret.Result()+"!"))
}

func newContext(key string) *taskcontext.TaskContext {
	ctx := taskcontext.NewTaskContext(context.Background())
	ctx.SetKey(key)
	return ctx
}

func TestTrace(t *testing.T) {
	tt := new(taggingTracer)
	var seen string
	ret, err := Trace(tt, newContext("hello-x-0"), func(ctx *taskcontext.TaskContext) (*processor.ProcessResult, error) {
		seen = ctx.Key()
		return processor.NewProcessResult(processor.WithSucceed(), processor.WithResult("ok")), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-x-0/traced", seen)
	assert.Equal(t, "ok!", ret.Result())
	assert.Equal(t, []string{"hello-x-0/traced"}, tt.ended)
}

func TestTraceKeepsError(t *testing.T) {
	tt := new(taggingTracer)
	boom := errors.New("boom")
	_, err := Trace(tt, newContext("k"), func(*taskcontext.TaskContext) (*processor.ProcessResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, tt.ended, 1)
}

func TestTraceWithoutTracer(t *testing.T) {
	ret, err := Trace(nil, newContext("k"), func(ctx *taskcontext.TaskContext) (*processor.ProcessResult, error) {
		return processor.NewProcessResult(processor.WithResult(ctx.Key())), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "k", ret.Result())
}
