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
	"fmt"
	"time"

	"go.uber.org/atomic"

	distributed "github.com/batch-workshop/mnp-hello"
	"github.com/batch-workshop/mnp-hello/config"
	"github.com/batch-workshop/mnp-hello/internal/utils"
	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor/hello"
)

var ErrWaitTimeout = errors.New("timed out waiting for workers")

type Phase int32

const (
	PhaseConnecting Phase = iota
	PhasePolling
	PhaseSubmitting
	PhaseStreaming
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhasePolling:
		return "polling"
	case PhaseSubmitting:
		return "submitting"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

type WorkerCounter interface {
	WorkerCount(ctx context.Context) (int, error)
}

// Cluster is the part of the client the driver needs once connected.
type Cluster interface {
	WorkerCounter
	Map(ctx context.Context, taskName string, args ...interface{}) ([]*distributed.Future, error)
}

type Driver struct {
	cfg     config.DriverConfig
	cluster Cluster
	phase   *atomic.Int32
}

func New(cfg config.DriverConfig, cluster Cluster) *Driver {
	return &Driver{
		cfg:     cfg,
		cluster: cluster,
		phase:   atomic.NewInt32(int32(PhaseConnecting)),
	}
}

func (d *Driver) Phase() Phase {
	return Phase(d.phase.Load())
}

func (d *Driver) setPhase(p Phase) {
	d.phase.Store(int32(p))
	logger.Debugf("Driver phase=%s", p)
}

// Run waits for the expected workers, submits the hello batch and logs every result as it
// arrives. The first failed task ends the run with its error.
func (d *Driver) Run(ctx context.Context) error {
	d.setPhase(PhasePolling)
	if err := WaitForWorkers(ctx, d.cluster, d.cfg.ExpectedWorkers(), d.cfg.PollInterval(), d.cfg.WaitTimeout()); err != nil {
		return err
	}

	d.setPhase(PhaseSubmitting)
	args := make([]interface{}, d.cfg.TaskCount())
	for i := range args {
		args[i] = i
	}
	futures, err := d.cluster.Map(ctx, d.cfg.TaskName(), args...)
	if err != nil {
		return err
	}

	d.setPhase(PhaseStreaming)
	if _, err := StreamResults(ctx, futures); err != nil {
		return err
	}
	d.setPhase(PhaseDone)
	return nil
}

// WaitForWorkers polls counter until it reports exactly expected workers, logging every
// observation. A zero timeout waits until ctx is done.
func WaitForWorkers(ctx context.Context, counter WorkerCounter, expected int, interval, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := utils.PollUntil(ctx, interval, func(ctx context.Context) (bool, error) {
		n, err := counter.WorkerCount(ctx)
		if err != nil {
			return false, fmt.Errorf("query worker count failed, err=%w", err)
		}
		logger.Infof("Workers %d of %d up", n, expected)
		return n == expected, nil
	})
	if timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: expected=%d, timeout=%s", ErrWaitTimeout, expected, timeout)
	}
	return err
}

// StreamResults logs the result of each future in completion order and returns how many were
// logged. It stops at the first failed future.
func StreamResults(ctx context.Context, futures []*distributed.Future) (int, error) {
	logged := 0
	completed := distributed.AsCompleted(futures)
	for {
		select {
		case f, ok := <-completed:
			if !ok {
				return logged, nil
			}
			result, err := f.Result(ctx)
			if err != nil {
				return logged, err
			}
			logger.Infof("%s", result)
			logged++
		case <-ctx.Done():
			return logged, ctx.Err()
		}
	}
}

// Launch connects to the cluster described by cfg and runs the driver to completion.
func Launch(ctx context.Context, cfg config.DriverConfig, opts ...distributed.Option) error {
	logger.Debugf("Driver phase=%s", PhaseConnecting)
	client, err := distributed.NewClient(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	client.RegisterTask(hello.TaskName, new(hello.Hello))
	if cfg.ForwardLogging() {
		if err := client.ForwardLogging(ctx); err != nil {
			return fmt.Errorf("enable forward logging failed, err=%w", err)
		}
	}
	return New(cfg, client).Run(ctx)
}
