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
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"

	"github.com/batch-workshop/mnp-hello/internal/constants"
)

type Logger interface {
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
	Level(level string)
	OutputPath(path string) (err error)
}

var rLog Logger

func init() {
	l := logrus.New()
	l.SetLevel(parseLevel(os.Getenv(constants.EnvLogLevel)))
	rLog = NewLogrusLogger(l, constants.LoggerName)
}

// NewLogrusLogger wraps l so that every entry carries the stream name in the "logger" field.
func NewLogrusLogger(l *logrus.Logger, name string) Logger {
	return &defaultLogger{
		logger: l,
		entry:  logrus.NewEntry(l).WithField("logger", name),
	}
}

type defaultLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

func (l *defaultLogger) Debugf(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

func (l *defaultLogger) Infof(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

func (l *defaultLogger) Warnf(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

func (l *defaultLogger) Errorf(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

func (l *defaultLogger) WithField(key string, value interface{}) Logger {
	return &defaultLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

func (l *defaultLogger) Level(level string) {
	l.logger.SetLevel(parseLevel(level))
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

type Config struct {
	OutputPath    string
	MaxFileSizeMB int
	MaxBackups    int
	MaxAges       int
	Compress      bool
	LocalTime     bool
}

func (c *Config) Logger() *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.ToSlash(c.OutputPath),
		MaxSize:    c.MaxFileSizeMB, // MB
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAges,  // days
		Compress:   c.Compress, // disabled by default
		LocalTime:  c.LocalTime,
	}
}

func defaultConfig() Config {
	userHome, _ := os.UserHomeDir()
	return Config{
		OutputPath:    path.Join(userHome, "logs/mnp-hello/driver.log"),
		MaxFileSizeMB: 10,
		MaxBackups:    5,
		MaxAges:       3,
		Compress:      false,
		LocalTime:     true,
	}
}

func (l *defaultLogger) OutputPath(path string) (err error) {
	config := defaultConfig()
	config.OutputPath = path

	l.logger.Out = config.Logger()
	return
}

// SetLogger use specified logger user customized, in general, we suggest user to replace the default logger with specified
func SetLogger(logger Logger) {
	rLog = logger
}

// GetLogger returns the logger currently behind the package level functions.
func GetLogger() Logger {
	return rLog
}

func SetLogLevel(level string) {
	if level == "" {
		return
	}
	rLog.Level(level)
}

func SetOutputPath(path string) (err error) {
	if "" == path {
		return
	}

	return rLog.OutputPath(path)
}

func WithField(key string, value interface{}) Logger {
	return rLog.WithField(key, value)
}

func Debugf(msg string, args ...interface{}) {
	rLog.Debugf(msg, args...)
}

func Infof(msg string, args ...interface{}) {
	rLog.Infof(msg, args...)
}

func Warnf(msg string, args ...interface{}) {
	rLog.Warnf(msg, args...)
}

func Errorf(msg string, args ...interface{}) {
	rLog.Errorf(msg, args...)
}
