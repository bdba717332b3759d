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

package driver

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	distributed "github.com/batch-workshop/mnp-hello"
	"github.com/batch-workshop/mnp-hello/config"
	"github.com/batch-workshop/mnp-hello/internal/clustertest"
	"github.com/batch-workshop/mnp-hello/internal/tasks"
	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/hello"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

var resultLine = regexp.MustCompile(`^(\d+): Hello from Worker (worker-\d)$`)

func captureLogs(t *testing.T) *test.Hook {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	prev := logger.GetLogger()
	logger.SetLogger(logger.NewLogrusLogger(l, "distributed"))
	t.Cleanup(func() { logger.SetLogger(prev) })
	return hook
}

func messages(hook *test.Hook, match func(string) bool) []string {
	ret := make([]string, 0)
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.InfoLevel && match(entry.Message) {
			ret = append(ret, entry.Message)
		}
	}
	return ret
}

func pollLines(hook *test.Hook) []string {
	return messages(hook, func(msg string) bool { return strings.HasPrefix(msg, "Workers ") })
}

func resultLines(hook *test.Hook) []string {
	return messages(hook, resultLine.MatchString)
}

type countSequence struct {
	counts []int
	calls  int
	err    error
}

func (c *countSequence) WorkerCount(context.Context) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	idx := c.calls
	if idx >= len(c.counts) {
		idx = len(c.counts) - 1
	}
	c.calls++
	return c.counts[idx], nil
}

type fakeCluster struct {
	countSequence
	mapErr error
}

func (f *fakeCluster) Map(context.Context, string, ...interface{}) ([]*distributed.Future, error) {
	return nil, f.mapErr
}

func TestWaitForWorkers(t *testing.T) {
	hook := captureLogs(t)
	counter := &countSequence{counts: []int{0, 1, 2, 3}}

	err := WaitForWorkers(context.Background(), counter, 2, time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, counter.calls)
	assert.Equal(t, []string{"Workers 0 of 2 up", "Workers 1 of 2 up", "Workers 2 of 2 up"}, pollLines(hook))
}

func TestWaitForWorkersPolls(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		expected := rapid.IntRange(0, 30).Draw(t, "expected")
		counts := make([]int, expected+1)
		for i := range counts {
			counts[i] = i
		}
		counter := &countSequence{counts: counts}
		if err := WaitForWorkers(context.Background(), counter, expected, time.Microsecond, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if counter.calls != expected+1 {
			t.Fatalf("polled %d times, want %d", counter.calls, expected+1)
		}
	})
}

func TestWaitForWorkersTimeout(t *testing.T) {
	captureLogs(t)
	counter := &countSequence{counts: []int{0}}

	err := WaitForWorkers(context.Background(), counter, 1, time.Millisecond, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Greater(t, counter.calls, 1)
}

func TestWaitForWorkersCanceled(t *testing.T) {
	captureLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForWorkers(ctx, &countSequence{counts: []int{0}}, 1, time.Hour, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForWorkersCountError(t *testing.T) {
	boom := errors.New("scheduler gone")
	err := WaitForWorkers(context.Background(), &countSequence{err: boom}, 1, time.Millisecond, 0)
	assert.ErrorIs(t, err, boom)
}

func TestRunMapError(t *testing.T) {
	captureLogs(t)
	boom := errors.New("write: broken pipe")
	cluster := &fakeCluster{countSequence: countSequence{counts: []int{1}}, mapErr: boom}
	d := New(config.NewDriverConfig(config.WithPollInterval(time.Millisecond)), cluster)

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PhaseSubmitting, d.Phase())
}

func launchConfig(s *clustertest.Scheduler, opts ...config.Option) config.DriverConfig {
	base := []config.Option{
		config.WithSchedulerHost(s.Host()),
		config.WithSchedulerPort(s.Port()),
		config.WithDefaultExpectedWorkers(2),
		config.WithPollInterval(time.Millisecond),
	}
	return config.NewDriverConfig(append(base, opts...)...)
}

func TestLaunch(t *testing.T) {
	for _, format := range []string{"json", "protobuf"} {
		t.Run(format, func(t *testing.T) {
			s, err := clustertest.Start(
				clustertest.WithWorkers("worker-0", "worker-1"),
				clustertest.WithWorkerCounts(0, 1, 2),
				clustertest.WithWireFormat(format))
			require.NoError(t, err)
			defer s.Close()
			hook := captureLogs(t)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			err = Launch(ctx, launchConfig(s, config.WithWireFormat(format)), distributed.WithTaskMap(tasks.NewTaskMap()))
			require.NoError(t, err)

			assert.Equal(t, 3, s.InfoRequests())
			assert.Len(t, pollLines(hook), 3)

			lines := resultLines(hook)
			require.Len(t, lines, 50)
			indices := make([]int, 0, len(lines))
			for _, line := range lines {
				m := resultLine.FindStringSubmatch(line)
				i, err := strconv.Atoi(m[1])
				require.NoError(t, err)
				assert.Equal(t, "worker-"+strconv.Itoa(i%2), m[2])
				indices = append(indices, i)
			}
			sort.Ints(indices)
			for i, idx := range indices {
				assert.Equal(t, i, idx)
			}

			forwarded := 0
			for _, entry := range hook.AllEntries() {
				if entry.Data["logger"] == "distributed.worker" && entry.Data["worker"] != nil {
					forwarded++
				}
			}
			assert.Equal(t, 50, forwarded)
		})
	}
}

func TestLaunchTaskFailure(t *testing.T) {
	workerTasks := tasks.NewTaskMap()
	workerTasks.Register(hello.TaskName, processor.ProcessFunc(func(ctx *taskcontext.TaskContext) (*processor.ProcessResult, error) {
		if ctx.Arg(0).Int() == 7 {
			return nil, errors.New("worker crashed")
		}
		return new(hello.Hello).Process(ctx)
	}))
	s, err := clustertest.Start(
		clustertest.WithWorkers("worker-0"),
		clustertest.WithWorkerCounts(2),
		clustertest.WithTaskMap(workerTasks),
		clustertest.WithThreads(1))
	require.NoError(t, err)
	defer s.Close()
	hook := captureLogs(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = Launch(ctx, launchConfig(s, config.WithDisableForwardLogging()), distributed.WithTaskMap(tasks.NewTaskMap()))

	var taskErr *distributed.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Contains(t, taskErr.Exception, "worker crashed")

	lines := resultLines(hook)
	require.Len(t, lines, 7)
	for i, line := range lines {
		assert.Equal(t, strconv.Itoa(i)+": Hello from Worker worker-0", line)
	}
}

func TestLaunchConnectFailure(t *testing.T) {
	s, err := clustertest.Start()
	require.NoError(t, err)
	cfg := launchConfig(s, config.WithDialTimeout(time.Second))
	require.NoError(t, s.Close())

	err = Launch(context.Background(), cfg, distributed.WithTaskMap(tasks.NewTaskMap()))
	assert.Error(t, err)
}
