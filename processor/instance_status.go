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

type InstanceStatus int32

const (
	InstanceStatusUnknown InstanceStatus = 0
	InstanceStatusRunning InstanceStatus = 3
	InstanceStatusSucceed InstanceStatus = 4
	InstanceStatusFailed  InstanceStatus = 5
)

var instanceStatusDesc = map[InstanceStatus]string{
	0: "unknown",
	3: "running",
	4: "success",
	5: "failed",
}

func (status InstanceStatus) Descriptor() string {
	return instanceStatusDesc[status]
}

func (status InstanceStatus) IsFinished() bool {
	return status == InstanceStatusSucceed || status == InstanceStatusFailed
}
