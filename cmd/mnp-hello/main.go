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

	"github.com/batch-workshop/mnp-hello/config"
	"github.com/batch-workshop/mnp-hello/internal/driver"
	"github.com/batch-workshop/mnp-hello/logger"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf("mnp-hello failed, err=%s", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromOSEnv()
	if err != nil {
		return err
	}
	logger.SetLogLevel(cfg.LogLevel())
	if path := cfg.LogPath(); path != "" {
		if err := logger.SetOutputPath(path); err != nil {
			return err
		}
	}

	// wait for the stop signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting driver, scheduler=%s, expectedWorkers=%d", cfg.Address(), cfg.ExpectedWorkers())
	return driver.Launch(ctx, cfg)
}
