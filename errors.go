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
	"errors"
	"fmt"
)

var (
	ErrClientClosed   = errors.New("client is closed")
	ErrConnectionLost = errors.New("connection to scheduler lost")
	ErrUnknownTask    = errors.New("task is not registered")
)

// TaskError is the failure of one task, as reported by the worker that ran it.
type TaskError struct {
	Key       string
	Exception string
	Traceback string
	Worker    string
}

func (e *TaskError) Error() string {
	if e.Worker == "" {
		return fmt.Sprintf("task %s failed: %s", e.Key, e.Exception)
	}
	return fmt.Sprintf("task %s failed on worker %s: %s", e.Key, e.Worker, e.Exception)
}
