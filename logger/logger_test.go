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

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) *test.Hook {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	prev := GetLogger()
	SetLogger(NewLogrusLogger(l, "distributed"))
	t.Cleanup(func() { SetLogger(prev) })
	return hook
}

func TestNamedStream(t *testing.T) {
	hook := captureLogger(t)

	Infof("Workers %d of %d up", 1, 2)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Workers 1 of 2 up", entry.Message)
	assert.Equal(t, "distributed", entry.Data["logger"])
}

func TestForward(t *testing.T) {
	hook := captureLogger(t)

	Forward(Record{Name: "distributed.worker", LevelName: "WARNING", Msg: "memory high", Worker: "tcp://10.0.0.2:40000"})
	Forward(Record{LevelName: "info", Msg: "ran", Worker: "tcp://10.0.0.3:40000"})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "memory high", entries[0].Message)
	assert.Equal(t, "distributed.worker", entries[0].Data["logger"])
	assert.Equal(t, "tcp://10.0.0.2:40000", entries[0].Data["worker"])

	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Equal(t, "distributed", entries[1].Data["logger"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"WARN":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
