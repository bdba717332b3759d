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

package utils

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const SplitterToken = "-"

// NewClientId returns an id unique to one client session.
func NewClientId() string {
	return "Client-" + uuid.NewString()
}

// NewBatchToken returns the token shared by every task of one Map call.
func NewBatchToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TaskKey names the index-th task of a batch, for example "hello-3f2a...-7".
func TaskKey(taskName, token string, index int) string {
	return strings.Join([]string{taskName, token, strconv.Itoa(index)}, SplitterToken)
}

// ParseTaskIndex returns the batch index encoded in a key built by TaskKey.
func ParseTaskIndex(key string) (int, bool) {
	pos := strings.LastIndex(key, SplitterToken)
	if pos < 0 {
		return 0, false
	}
	index, err := strconv.Atoi(key[pos+1:])
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
