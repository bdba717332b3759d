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
	"github.com/tidwall/gjson"
)

type WorkerInfo struct {
	Address  string
	Name     string
	Host     string
	NThreads int
}

// SchedulerInfo is the scheduler's view of the cluster.
type SchedulerInfo struct {
	ID      string
	Address string
	// keyed by worker address
	Workers map[string]WorkerInfo
}

func parseSchedulerInfo(data gjson.Result) *SchedulerInfo {
	info := &SchedulerInfo{
		ID:      data.Get("id").String(),
		Address: data.Get("address").String(),
		Workers: make(map[string]WorkerInfo),
	}
	data.Get("workers").ForEach(func(addr, worker gjson.Result) bool {
		info.Workers[addr.String()] = WorkerInfo{
			Address:  addr.String(),
			Name:     worker.Get("name").String(),
			Host:     worker.Get("host").String(),
			NThreads: int(worker.Get("nthreads").Int()),
		}
		return true
	})
	return info
}
