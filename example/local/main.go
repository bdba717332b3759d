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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	distributed "github.com/batch-workshop/mnp-hello"
	"github.com/batch-workshop/mnp-hello/config"
	"github.com/batch-workshop/mnp-hello/internal/clustertest"
	"github.com/batch-workshop/mnp-hello/internal/driver"
	"github.com/batch-workshop/mnp-hello/internal/tasks"
	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor/hello"
)

// Runs the hello driver against an in-process scheduler with two simulated workers, then
// submits a custom task through the client directly.
func main() {
	if err := run(); err != nil {
		logger.Errorf("local example failed, err=%s", err.Error())
		os.Exit(1)
	}
}

func run() error {
	workerTasks := tasks.NewTaskMap()
	workerTasks.Register(hello.TaskName, new(hello.Hello))
	workerTasks.Register("square", new(Square))

	s, err := clustertest.Start(
		clustertest.WithWorkers("worker-0", "worker-1"),
		clustertest.WithWorkerCounts(0, 1, 2),
		clustertest.WithTaskMap(workerTasks))
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := config.NewDriverConfig(
		config.WithSchedulerHost(s.Host()),
		config.WithSchedulerPort(s.Port()),
		config.WithDefaultExpectedWorkers(2),
		config.WithPollInterval(time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := driver.Launch(ctx, cfg, distributed.WithTracer(timingTracer{})); err != nil {
		return err
	}

	client, err := distributed.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	// The name square registered here must match the one the workers know
	client.RegisterTask("square", new(Square))
	f, err := client.Submit(ctx, "square", 12)
	if err != nil {
		return err
	}
	result, err := f.Result(ctx)
	if err != nil {
		return err
	}
	logger.Infof("square(12)=%s on %s", result, f.Worker())
	return nil
}
