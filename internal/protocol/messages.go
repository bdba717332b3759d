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

package protocol

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Operations understood by the coordinator and sent by it. Every message is an object whose
// "op" field names one of these.
const (
	OpRegisterClient  = "register-client"
	OpStreamStart     = "stream-start"
	OpSchedulerInfo   = "scheduler-info"
	OpForwardLogging  = "forward-logging"
	OpUpdateGraph     = "update-graph"
	OpHeartbeatClient = "heartbeat-client"
	OpCloseClient     = "close-client"

	OpResponse    = "response"
	OpKeyInMemory = "key-in-memory"
	OpTaskErred   = "task-erred"
	OpLogEvent    = "log-event"
	OpHeartbeat   = "heartbeat"
)

const (
	StatusOK    = "OK"
	StatusError = "error"

	TopicForwardLogging = "forward-logging"
)

type RegisterClient struct {
	Op     string `json:"op"`
	Client string `json:"client"`
	Host   string `json:"host"`
}

type StreamStart struct {
	Op        string `json:"op"`
	Scheduler string `json:"scheduler"`
}

type Request struct {
	Op      string `json:"op"`
	ReplyTo int64  `json:"reply_to"`
	Enable  *bool  `json:"enable,omitempty"`
}

type Response struct {
	Op      string          `json:"op"`
	ReplyTo int64           `json:"reply_to"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type TaskSpec struct {
	Key  string        `json:"key"`
	Func string        `json:"func"`
	Args []interface{} `json:"args"`
}

type UpdateGraph struct {
	Op     string     `json:"op"`
	Client string     `json:"client"`
	Tasks  []TaskSpec `json:"tasks"`
}

type HeartbeatClient struct {
	Op      string             `json:"op"`
	Client  string             `json:"client"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

type Heartbeat struct {
	Op string `json:"op"`
}

type CloseClient struct {
	Op     string `json:"op"`
	Client string `json:"client"`
}

type KeyInMemory struct {
	Op     string          `json:"op"`
	Key    string          `json:"key"`
	Result json.RawMessage `json:"result"`
	Worker string          `json:"worker"`
}

type TaskErred struct {
	Op        string `json:"op"`
	Key       string `json:"key"`
	Exception string `json:"exception"`
	Traceback string `json:"traceback,omitempty"`
	Worker    string `json:"worker"`
}

type LogRecord struct {
	Name      string `json:"name"`
	LevelName string `json:"levelname"`
	Msg       string `json:"msg"`
	Worker    string `json:"worker"`
}

type LogEvent struct {
	Op     string    `json:"op"`
	Topic  string    `json:"topic"`
	Record LogRecord `json:"record"`
}

type WorkerInfo struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	NThreads int    `json:"nthreads"`
}

type SchedulerInfo struct {
	ID      string                `json:"id"`
	Address string                `json:"address"`
	Workers map[string]WorkerInfo `json:"workers"`
}

// Op returns the operation of an encoded message, or "" when it has none.
func Op(msg []byte) string {
	return gjson.GetBytes(msg, "op").String()
}
