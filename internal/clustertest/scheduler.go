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

// Package clustertest runs an in-process scheduler that speaks the client protocol and executes
// submitted tasks itself, standing in for a real cluster in tests.
package clustertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"github.com/batch-workshop/mnp-hello/internal/constants"
	"github.com/batch-workshop/mnp-hello/internal/protocol"
	"github.com/batch-workshop/mnp-hello/internal/remoting/codec"
	"github.com/batch-workshop/mnp-hello/internal/remoting/trans"
	"github.com/batch-workshop/mnp-hello/internal/tasks"
	"github.com/batch-workshop/mnp-hello/internal/utils"
	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor/hello"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

const workerLoggerName = "distributed.worker"

type options struct {
	workers    []string
	counts     []int
	wireFormat string
	taskMap    *tasks.TaskMap
	threads    int
}

type Option func(*options)

// WithWorkers names the hosts of the simulated workers. Tasks are spread over them by index.
func WithWorkers(hosts ...string) Option {
	return func(o *options) {
		o.workers = hosts
	}
}

// WithWorkerCounts sets the number of workers reported by successive scheduler-info requests.
// The last count repeats once the list is used up.
func WithWorkerCounts(counts ...int) Option {
	return func(o *options) {
		o.counts = counts
	}
}

func WithWireFormat(format string) Option {
	return func(o *options) {
		o.wireFormat = format
	}
}

// WithTaskMap sets the tasks the scheduler can run. The default knows only the hello task.
func WithTaskMap(tm *tasks.TaskMap) Option {
	return func(o *options) {
		o.taskMap = tm
	}
}

// WithThreads bounds how many tasks run at once. With one thread tasks complete in submission
// order.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

type Scheduler struct {
	id       string
	opts     *options
	codec    codec.Codec
	listener net.Listener
	pool     *ants.Pool

	infoRequests *atomic.Int64
	heartbeats   *atomic.Int64
	clients      *utils.ConcurrentSet
	closed       *atomic.Bool

	connLock sync.Mutex
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// Start listens on a loopback port and serves clients until Close.
func Start(opts ...Option) (*Scheduler, error) {
	o := &options{
		workers:    []string{"worker-0"},
		wireFormat: constants.DefaultWireFormat,
		threads:    4,
	}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.workers) == 0 {
		return nil, errors.New("clustertest: at least one worker host is required")
	}
	if len(o.counts) == 0 {
		o.counts = []int{len(o.workers)}
	}
	if o.taskMap == nil {
		o.taskMap = tasks.NewTaskMap()
		o.taskMap.Register(hello.TaskName, new(hello.Hello))
	}

	c, err := codec.New(o.wireFormat)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(o.threads,
		ants.WithExpiryDuration(30*time.Second),
		ants.WithPanicHandler(func(i interface{}) {
			logger.Errorf("Catch panic with PanicHandler in scheduler pool, %v", i)
		}))
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen(constants.SchedulerProtocol, "127.0.0.1:0")
	if err != nil {
		pool.Release()
		return nil, err
	}

	s := &Scheduler{
		id:           "Scheduler-" + uuid.NewString(),
		opts:         o,
		codec:        c,
		listener:     listener,
		pool:         pool,
		infoRequests: atomic.NewInt64(0),
		heartbeats:   atomic.NewInt64(0),
		clients:      utils.NewConcurrentSet(),
		closed:       atomic.NewBool(false),
		conns:        make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

func (s *Scheduler) Host() string {
	host, _, _ := utils.ParseIPAddr(s.listener.Addr().String())
	return host
}

func (s *Scheduler) Port() int {
	_, port, _ := utils.ParseIPAddr(s.listener.Addr().String())
	return port
}

// InfoRequests is the number of scheduler-info requests served so far.
func (s *Scheduler) InfoRequests() int {
	return int(s.infoRequests.Load())
}

// Clients lists the ids of the clients currently registered.
func (s *Scheduler) Clients() []string {
	return s.clients.Sorted()
}

func (s *Scheduler) Heartbeats() int {
	return int(s.heartbeats.Load())
}

// Close stops accepting, drops every connection and waits for running tasks.
func (s *Scheduler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.listener.Close()
	s.connLock.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connLock.Unlock()
	s.wg.Wait()
	s.pool.Release()
	return err
}

func (s *Scheduler) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				logger.Errorf("Scheduler accept failed, err=%s", err.Error())
			}
			return
		}
		s.connLock.Lock()
		s.conns[conn] = struct{}{}
		s.connLock.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

type session struct {
	conn        net.Conn
	codec       codec.Codec
	writeLock   sync.Mutex
	clientId    string
	forwardLogs *atomic.Bool
}

func (ss *session) send(msg interface{}) error {
	payload, err := codec.Marshal(ss.codec, msg)
	if err != nil {
		return err
	}
	ss.writeLock.Lock()
	defer ss.writeLock.Unlock()
	return trans.WriteFrame(ss.conn, payload)
}

func (ss *session) recv() (gjson.Result, error) {
	payload, err := trans.ReadFrame(ss.conn)
	if err != nil {
		return gjson.Result{}, err
	}
	msg, err := ss.codec.Decode(payload)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(msg), nil
}

func (s *Scheduler) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connLock.Lock()
		delete(s.conns, conn)
		s.connLock.Unlock()
		_ = conn.Close()
	}()

	ss := &session{conn: conn, codec: s.codec, forwardLogs: atomic.NewBool(false)}
	if err := s.handshake(ss); err != nil {
		logger.Warnf("Scheduler handshake failed, remoteAddr=%s, err=%s", conn.RemoteAddr(), err.Error())
		return
	}
	defer s.clients.Remove(ss.clientId)

	for {
		msg, err := ss.recv()
		if err != nil {
			logger.Debugf("Scheduler session ended, client=%s, err=%s", ss.clientId, err.Error())
			return
		}
		if done := s.handle(ss, msg); done {
			return
		}
	}
}

func (s *Scheduler) handshake(ss *session) error {
	msg, err := ss.recv()
	if err != nil {
		return err
	}
	if op := msg.Get("op").String(); op != protocol.OpRegisterClient {
		return fmt.Errorf("expect %s, got %q", protocol.OpRegisterClient, op)
	}
	ss.clientId = msg.Get("client").String()
	s.clients.Add(ss.clientId)
	return ss.send(&protocol.StreamStart{Op: protocol.OpStreamStart, Scheduler: s.address()})
}

func (s *Scheduler) handle(ss *session, msg gjson.Result) (done bool) {
	replyTo := msg.Get("reply_to").Int()
	switch op := msg.Get("op").String(); op {
	case protocol.OpSchedulerInfo:
		data, err := json.Marshal(s.schedulerInfo())
		if err != nil {
			s.replyError(ss, replyTo, err.Error())
			return false
		}
		s.reply(ss, &protocol.Response{Op: protocol.OpResponse, ReplyTo: replyTo, Status: protocol.StatusOK, Data: data})
	case protocol.OpForwardLogging:
		ss.forwardLogs.Store(msg.Get("enable").Bool())
		s.reply(ss, &protocol.Response{Op: protocol.OpResponse, ReplyTo: replyTo, Status: protocol.StatusOK})
	case protocol.OpUpdateGraph:
		specs := msg.Get("tasks").Array()
		s.wg.Add(1)
		go s.runGraph(ss, specs)
	case protocol.OpHeartbeatClient:
		s.heartbeats.Inc()
		s.reply(ss, &protocol.Heartbeat{Op: protocol.OpHeartbeat})
	case protocol.OpCloseClient:
		logger.Debugf("Scheduler received close-client, client=%s", ss.clientId)
		return true
	default:
		if msg.Get("reply_to").Exists() {
			s.replyError(ss, replyTo, fmt.Sprintf("unknown operation %q", op))
			return false
		}
		logger.Warnf("Scheduler received unknown message, op=%q", op)
	}
	return false
}

func (s *Scheduler) reply(ss *session, msg interface{}) {
	if err := ss.send(msg); err != nil {
		logger.Debugf("Scheduler write to client=%s failed, err=%s", ss.clientId, err.Error())
	}
}

func (s *Scheduler) replyError(ss *session, replyTo int64, message string) {
	s.reply(ss, &protocol.Response{Op: protocol.OpResponse, ReplyTo: replyTo, Status: protocol.StatusError, Message: message})
}

func (s *Scheduler) address() string {
	return "tcp://" + s.listener.Addr().String()
}

func workerAddr(i int) string {
	return "tcp://127.0.0.1:" + strconv.Itoa(40000+i)
}

func (s *Scheduler) workerHost(i int) string {
	return s.opts.workers[i%len(s.opts.workers)]
}

func (s *Scheduler) schedulerInfo() *protocol.SchedulerInfo {
	idx := int(s.infoRequests.Inc()) - 1
	if idx >= len(s.opts.counts) {
		idx = len(s.opts.counts) - 1
	}
	n := s.opts.counts[idx]

	info := &protocol.SchedulerInfo{
		ID:      s.id,
		Address: s.address(),
		Workers: make(map[string]protocol.WorkerInfo, n),
	}
	for i := 0; i < n; i++ {
		info.Workers[workerAddr(i)] = protocol.WorkerInfo{
			Name:     strconv.Itoa(i),
			Host:     s.workerHost(i),
			NThreads: s.opts.threads,
		}
	}
	return info
}

func (s *Scheduler) runGraph(ss *session, specs []gjson.Result) {
	defer s.wg.Done()
	for i, spec := range specs {
		spec, worker := spec, i
		// place by batch index so a task lands on the same worker however the batch is split
		if idx, ok := utils.ParseTaskIndex(spec.Get("key").String()); ok {
			worker = idx
		}
		s.wg.Add(1)
		err := s.pool.Submit(func() {
			defer s.wg.Done()
			s.runTask(ss, spec, worker)
		})
		if err != nil {
			s.wg.Done()
			s.reply(ss, &protocol.TaskErred{
				Op:        protocol.OpTaskErred,
				Key:       spec.Get("key").String(),
				Exception: err.Error(),
			})
		}
	}
}

func (s *Scheduler) runTask(ss *session, spec gjson.Result, worker int) {
	key := spec.Get("key").String()
	host := s.workerHost(worker)
	addr := workerAddr(worker % len(s.opts.workers))

	ctx := taskcontext.NewTaskContext(context.Background())
	ctx.SetKey(key)
	ctx.SetTaskName(spec.Get("func").String())
	ctx.SetArgs(spec.Get("args").Array())
	ctx.SetHostname(host)
	ctx.SetWorkerAddr(addr)

	if ss.forwardLogs.Load() {
		s.reply(ss, &protocol.LogEvent{
			Op:    protocol.OpLogEvent,
			Topic: protocol.TopicForwardLogging,
			Record: protocol.LogRecord{
				Name:      workerLoggerName,
				LevelName: "INFO",
				Msg:       fmt.Sprintf("Run task key=%s", key),
				Worker:    addr,
			},
		})
	}

	ret, err := s.opts.taskMap.Run(ctx)
	if err != nil {
		erred := &protocol.TaskErred{
			Op:        protocol.OpTaskErred,
			Key:       key,
			Exception: err.Error(),
			Worker:    addr,
		}
		var pe *tasks.PanicError
		if errors.As(err, &pe) {
			erred.Traceback = string(pe.Stack)
		}
		s.reply(ss, erred)
		return
	}

	result, err := json.Marshal(ret.Result())
	if err != nil {
		s.reply(ss, &protocol.TaskErred{Op: protocol.OpTaskErred, Key: key, Exception: err.Error(), Worker: addr})
		return
	}
	s.reply(ss, &protocol.KeyInMemory{
		Op:     protocol.OpKeyInMemory,
		Key:    key,
		Result: result,
		Worker: addr,
	})
}
