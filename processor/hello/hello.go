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

package hello

import (
	"errors"
	"fmt"

	"github.com/batch-workshop/mnp-hello/internal/constants"
	"github.com/batch-workshop/mnp-hello/internal/utils"
	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

const TaskName = constants.DefaultTaskName

var (
	_ processor.Processor = &Hello{}

	ErrMissingIndex = errors.New("hello task needs an index argument")
)

// Hello greets from whichever worker runs it: "<i>: Hello from Worker <host>". The host is
// the one the executing runtime put in the task context, else this machine's hostname.
type Hello struct{}

func (h *Hello) Process(ctx *taskcontext.TaskContext) (*processor.ProcessResult, error) {
	if ctx.NumArgs() == 0 {
		return processor.NewProcessResult(processor.WithFailed()), ErrMissingIndex
	}
	host := ctx.Hostname()
	if host == "" {
		host = utils.GetHostname()
	}
	return processor.NewProcessResult(
		processor.WithSucceed(),
		processor.WithResult(Greeting(ctx.Arg(0).String(), host)),
	), nil
}

func Greeting(index, hostname string) string {
	return fmt.Sprintf("%s: Hello from Worker %s", index, hostname)
}
