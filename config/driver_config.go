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

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/batch-workshop/mnp-hello/internal/constants"
)

var (
	ErrInvalidNodeCount  = errors.New("invalid node count")
	ErrInvalidWireFormat = errors.New("invalid wire format")
	ErrInvalidDuration   = errors.New("invalid duration")
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type Option func(*DriverConfig)

func WithSchedulerHost(host string) Option {
	return func(config *DriverConfig) {
		config.schedulerHost = host
	}
}

func WithSchedulerPort(port int) Option {
	return func(config *DriverConfig) {
		config.schedulerPort = port
	}
}

// WithDefaultExpectedWorkers sets the worker count used when the node count is not provided.
func WithDefaultExpectedWorkers(n int) Option {
	return func(config *DriverConfig) {
		config.expectedWorkers = n
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(config *DriverConfig) {
		config.pollInterval = interval
	}
}

// WithWaitTimeout bounds the wait for workers. Zero waits forever.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(config *DriverConfig) {
		config.waitTimeout = timeout
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(config *DriverConfig) {
		config.dialTimeout = timeout
	}
}

func WithHeartbeatInterval(interval time.Duration) Option {
	return func(config *DriverConfig) {
		config.heartbeatInterval = interval
	}
}

func WithTaskCount(n int) Option {
	return func(config *DriverConfig) {
		config.taskCount = n
	}
}

func WithTaskName(name string) Option {
	return func(config *DriverConfig) {
		config.taskName = name
	}
}

func WithDisableForwardLogging() Option {
	return func(config *DriverConfig) {
		config.forwardLogging = false
	}
}

func WithWireFormat(format string) Option {
	return func(config *DriverConfig) {
		config.wireFormat = format
	}
}

func WithLogLevel(level string) Option {
	return func(config *DriverConfig) {
		config.logLevel = level
	}
}

func WithLogPath(path string) Option {
	return func(config *DriverConfig) {
		config.logPath = path
	}
}

// NewDriverConfig returns the defaults adjusted by opts, without looking at the environment.
func NewDriverConfig(opts ...Option) DriverConfig {
	cfg := defaultDriverConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FromOSEnv is FromEnv over the process environment.
func FromOSEnv(opts ...Option) (DriverConfig, error) {
	return FromEnv(os.LookupEnv, opts...)
}

// FromEnv resolves the driver configuration once at startup. Options adjust the defaults,
// environment values take precedence over them.
func FromEnv(lookup LookupFunc, opts ...Option) (DriverConfig, error) {
	cfg := NewDriverConfig(opts...)

	if host, ok := lookup(constants.EnvMainNodeAddress); ok && strings.TrimSpace(host) != "" {
		cfg.schedulerHost = strings.TrimSpace(host)
	}

	if raw, ok := lookup(constants.EnvNumNodes); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return DriverConfig{}, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidNodeCount, constants.EnvNumNodes, raw)
		}
		workers, err := ExpectedWorkersFromNodes(n)
		if err != nil {
			return DriverConfig{}, err
		}
		cfg.expectedWorkers = workers
	}

	if level, ok := lookup(constants.EnvLogLevel); ok && level != "" {
		cfg.logLevel = level
	}
	if path, ok := lookup(constants.EnvLogPath); ok && path != "" {
		cfg.logPath = path
	}

	if raw, ok := lookup(constants.EnvWaitTimeout); ok && raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout < 0 {
			return DriverConfig{}, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, constants.EnvWaitTimeout, raw)
		}
		cfg.waitTimeout = timeout
	}

	if format, ok := lookup(constants.EnvWireFormat); ok && format != "" {
		cfg.wireFormat = strings.ToLower(format)
	}
	switch cfg.wireFormat {
	case "json", "protobuf":
	default:
		return DriverConfig{}, fmt.Errorf("%w: %q", ErrInvalidWireFormat, cfg.wireFormat)
	}

	return cfg, nil
}

// ExpectedWorkersFromNodes reserves one node of the job for the coordinator and this driver.
func ExpectedWorkersFromNodes(numNodes int) (int, error) {
	if numNodes < 1 {
		return 0, fmt.Errorf("%w: %s=%d, need at least 1", ErrInvalidNodeCount, constants.EnvNumNodes, numNodes)
	}
	return numNodes - 1, nil
}

type DriverConfig struct {
	schedulerHost     string
	schedulerPort     int
	expectedWorkers   int
	pollInterval      time.Duration
	waitTimeout       time.Duration
	dialTimeout       time.Duration
	heartbeatInterval time.Duration
	taskCount         int
	taskName          string
	forwardLogging    bool
	wireFormat        string
	logLevel          string
	logPath           string
}

func (c DriverConfig) SchedulerHost() string {
	return c.schedulerHost
}

func (c DriverConfig) SchedulerPort() int {
	return c.schedulerPort
}

// DialAddr is the host:port form of the coordinator endpoint.
func (c DriverConfig) DialAddr() string {
	return net.JoinHostPort(c.schedulerHost, strconv.Itoa(c.schedulerPort))
}

// Address is the coordinator endpoint as the cluster names it, e.g. tcp://127.0.0.1:8786.
func (c DriverConfig) Address() string {
	return constants.SchedulerProtocol + "://" + c.DialAddr()
}

func (c DriverConfig) ExpectedWorkers() int {
	return c.expectedWorkers
}

func (c DriverConfig) PollInterval() time.Duration {
	return c.pollInterval
}

func (c DriverConfig) WaitTimeout() time.Duration {
	return c.waitTimeout
}

func (c DriverConfig) DialTimeout() time.Duration {
	return c.dialTimeout
}

func (c DriverConfig) HeartbeatInterval() time.Duration {
	return c.heartbeatInterval
}

func (c DriverConfig) TaskCount() int {
	return c.taskCount
}

func (c DriverConfig) TaskName() string {
	return c.taskName
}

func (c DriverConfig) ForwardLogging() bool {
	return c.forwardLogging
}

func (c DriverConfig) WireFormat() string {
	return c.wireFormat
}

func (c DriverConfig) LogLevel() string {
	return c.logLevel
}

func (c DriverConfig) LogPath() string {
	return c.logPath
}

func defaultDriverConfig() DriverConfig {
	return DriverConfig{
		schedulerHost:     constants.DefaultSchedulerHost,
		schedulerPort:     constants.DefaultSchedulerPort,
		expectedWorkers:   constants.DefaultExpectedWorkers,
		pollInterval:      constants.DefaultPollInterval,
		waitTimeout:       0,
		dialTimeout:       constants.DefaultDialTimeout,
		heartbeatInterval: constants.DefaultHeartbeatInterval,
		taskCount:         constants.DefaultTaskCount,
		taskName:          constants.DefaultTaskName,
		forwardLogging:    true,
		wireFormat:        constants.DefaultWireFormat,
		logLevel:          "info",
	}
}
