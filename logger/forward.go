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

package logger

import "strings"

// Record is a log record emitted somewhere in the cluster and forwarded to this process.
type Record struct {
	Name      string
	LevelName string
	Msg       string
	Worker    string
}

// Forward re-emits a remote record on the local stream at the record's own level.
func Forward(rec Record) {
	l := rLog.WithField("worker", rec.Worker)
	if rec.Name != "" {
		l = l.WithField("logger", rec.Name)
	}
	switch strings.ToUpper(rec.LevelName) {
	case "DEBUG":
		l.Debugf("%s", rec.Msg)
	case "WARN", "WARNING":
		l.Warnf("%s", rec.Msg)
	case "ERROR", "CRITICAL", "FATAL":
		l.Errorf("%s", rec.Msg)
	default:
		l.Infof("%s", rec.Msg)
	}
}
