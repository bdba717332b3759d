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

package constants

import "time"

const (
	// Transport
	TransportHeaderSize = 4
	TransportFrameMax   = 64 * 1024 * 1024

	DefaultSchedulerHost = "127.0.0.1"
	DefaultSchedulerPort = 8786
	SchedulerProtocol    = "tcp"

	DefaultExpectedWorkers = 1
	DefaultTaskCount       = 50
	DefaultTaskName        = "hello"
	DefaultWireFormat      = "json"

	DefaultPollInterval      = 10 * time.Second
	DefaultDialTimeout       = 5 * time.Second
	DefaultHeartbeatInterval = 5 * time.Second
	HandshakeTimeout         = 5 * time.Second
	WriteTimeout             = 5 * time.Second

	LoggerName = "distributed"
)

// Environment provided by AWS Batch to every node of a multi-node parallel job.
const (
	EnvMainNodeAddress = "AWS_BATCH_JOB_MAIN_NODE_PRIVATE_IPV4_ADDRESS"
	EnvNumNodes        = "AWS_BATCH_JOB_NUM_NODES"
)

const (
	EnvLogLevel    = "MNP_HELLO_LOG_LEVEL"
	EnvLogPath     = "MNP_HELLO_LOG_PATH"
	EnvWaitTimeout = "MNP_HELLO_WAIT_TIMEOUT"
	EnvWireFormat  = "MNP_HELLO_WIRE_FORMAT"
)
