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
	"os"
	"sync"

	"github.com/shirou/gopsutil/host"
)

var (
	hostnameOnce sync.Once
	hostname     string
)

// GetHostname returns the name of the machine this process runs on.
func GetHostname() string {
	hostnameOnce.Do(func() {
		if info, err := host.Info(); err == nil && info.Hostname != "" {
			hostname = info.Hostname
			return
		}
		if name, err := os.Hostname(); err == nil {
			hostname = name
			return
		}
		hostname = "localhost"
	})
	return hostname
}
