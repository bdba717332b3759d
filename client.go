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

package distributed

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"github.com/batch-workshop/mnp-hello/config"
	"github.com/batch-workshop/mnp-hello/internal/constants"
	"github.com/batch-workshop/mnp-hello/internal/protocol"
	"github.com/batch-workshop/mnp-hello/internal/remoting"
	"github.com/batch-workshop/mnp-hello/internal/remoting/codec"
	"github.com/batch-workshop/mnp-hello/internal/remoting/connpool"
	"github.com/batch-workshop/mnp-hello/internal/tasks"
	"github.com/batch-workshop/mnp-hello/internal/utils"
	"github.com/batch-workshop/mnp-hello/logger"
	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/tracer"
)

// Client is a session with the cluster scheduler.
type Client struct {
	id          string
	stream      *remoting.Stream
	tasks       *tasks.TaskMap
	actorSystem *actor.ActorSystem
	routerPid   *actor.PID

	replyId *atomic.Int64
	pending sync.Map // map[int64]chan []byte

	closed   *atomic.Bool
	lost     chan struct{}
	lostErr  error
	lostOnce sync.Once
	cancel   context.CancelFunc
}

type Options struct {
	taskMap *tasks.TaskMap
}

type Option func(*Options)

func WithTracer(t tracer.Tracer) Option {
	return func(opt *Options) {
		tracer.InitTracer(t)
	}
}

// WithTaskMap uses tm as the task catalogue instead of the process-wide one.
func WithTaskMap(tm *tasks.TaskMap) Option {
	return func(opt *Options) {
		opt.taskMap = tm
	}
}

// NewClient connects to the scheduler named by cfg and registers a new client session.
func NewClient(ctx context.Context, cfg config.DriverConfig, opts ...Option) (*Client, error) {
	options := new(Options)
	for _, opt := range opts {
		opt(options)
	}
	if options.taskMap == nil {
		options.taskMap = tasks.GetTaskMap()
	}

	wireCodec, err := codec.New(cfg.WireFormat())
	if err != nil {
		return nil, err
	}
	clientId := utils.NewClientId()

	// Init connection pool
	dialer := func(ctx context.Context) (net.Conn, error) {
		logger.Infof("Connecting to scheduler, addr=%s", cfg.Address())
		d := net.Dialer{Timeout: cfg.DialTimeout()}
		return d.DialContext(ctx, constants.SchedulerProtocol, cfg.DialAddr())
	}
	singleConnPool := connpool.NewSingleConnPool(dialer,
		connpool.WithPostDialer(remoting.Handshake(wireCodec, clientId)))
	stream := remoting.NewStream(singleConnPool, wireCodec)
	if err := stream.Connect(ctx); err != nil {
		return nil, fmt.Errorf("cannot connect scheduler, addr=%s, err=%w", cfg.Address(), err)
	}

	// Init actors
	actorSystem := actor.NewActorSystem()
	routerPid, err := actorSystem.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return newEventRouter()
	}), "eventRouter")
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("init event router failed, err=%w", err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		id:          clientId,
		stream:      stream,
		tasks:       options.taskMap,
		actorSystem: actorSystem,
		routerPid:   routerPid,
		replyId:     atomic.NewInt64(0),
		closed:      atomic.NewBool(false),
		lost:        make(chan struct{}),
		cancel:      cancel,
	}

	// Keep heartbeat, and receive message
	go remoting.OnMsgReceived(bgCtx, stream, &dispatcher{client: c})
	go remoting.KeepHeartbeat(bgCtx, stream, clientId, cfg.HeartbeatInterval())

	logger.Infof("Scheduler connected, addr=%s, client=%s", cfg.Address(), clientId)
	return c, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) RegisterTask(name string, task processor.Processor) {
	c.tasks.Register(name, task)
}

// SchedulerInfo asks the scheduler for its identity and registered workers.
func (c *Client) SchedulerInfo(ctx context.Context) (*SchedulerInfo, error) {
	data, err := c.request(ctx, &protocol.Request{Op: protocol.OpSchedulerInfo})
	if err != nil {
		return nil, err
	}
	return parseSchedulerInfo(data), nil
}

// WorkerCount is the number of workers currently registered with the scheduler.
func (c *Client) WorkerCount(ctx context.Context) (int, error) {
	info, err := c.SchedulerInfo(ctx)
	if err != nil {
		return 0, err
	}
	return len(info.Workers), nil
}

// ForwardLogging makes the scheduler stream worker log records to this client, where they are
// written to the local logger.
func (c *Client) ForwardLogging(ctx context.Context) error {
	enable := true
	_, err := c.request(ctx, &protocol.Request{Op: protocol.OpForwardLogging, Enable: &enable})
	return err
}

// Map submits one task per argument, all running the task registered as taskName, in a single
// batch. The i-th future belongs to args[i].
func (c *Client) Map(ctx context.Context, taskName string, args ...interface{}) ([]*Future, error) {
	argLists := make([][]interface{}, 0, len(args))
	for _, arg := range args {
		argLists = append(argLists, []interface{}{arg})
	}
	return c.submit(ctx, taskName, argLists)
}

// Submit runs taskName once with the given positional arguments.
func (c *Client) Submit(ctx context.Context, taskName string, args ...interface{}) (*Future, error) {
	if args == nil {
		args = []interface{}{}
	}
	futures, err := c.submit(ctx, taskName, [][]interface{}{args})
	if err != nil {
		return nil, err
	}
	return futures[0], nil
}

func (c *Client) submit(ctx context.Context, taskName string, argLists [][]interface{}) ([]*Future, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if _, ok := c.tasks.Find(taskName); !ok {
		return nil, fmt.Errorf("%w: taskName=%s", ErrUnknownTask, taskName)
	}
	if len(argLists) == 0 {
		return []*Future{}, nil
	}

	token := utils.NewBatchToken()
	futures := make([]*Future, 0, len(argLists))
	keys := make([]string, 0, len(argLists))
	specs := make([]protocol.TaskSpec, 0, len(argLists))
	for i, args := range argLists {
		key := utils.TaskKey(taskName, token, i)
		futures = append(futures, newFuture(key))
		keys = append(keys, key)
		specs = append(specs, protocol.TaskSpec{Key: key, Func: taskName, Args: args})
	}

	// futures must be known to the router before any result can arrive
	c.actorSystem.Root.Send(c.routerPid, &registerFutures{futures: futures})
	req := &protocol.UpdateGraph{
		Op:     protocol.OpUpdateGraph,
		Client: c.id,
		Tasks:  specs,
	}
	if err := c.stream.Send(ctx, req); err != nil {
		c.actorSystem.Root.Send(c.routerPid, &releaseFutures{keys: keys, err: err})
		return nil, fmt.Errorf("submit tasks to scheduler failed, taskName=%s, err=%w", taskName, err)
	}
	logger.Debugf("Submit %d tasks to scheduler, taskName=%s, batch=%s", len(specs), taskName, token)
	return futures, nil
}

// Close ends the session. Futures still pending fail with ErrClientClosed. Calling Close more
// than once is a no-op.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.WriteTimeout)
	defer cancel()
	if err := c.stream.Send(ctx, &protocol.CloseClient{Op: protocol.OpCloseClient, Client: c.id}); err != nil {
		logger.Debugf("Send close-client to scheduler failed, err=%s", err.Error())
	}

	c.cancel()
	err := c.stream.Close()
	c.shutdown(ErrClientClosed)
	c.actorSystem.Root.Poison(c.routerPid)
	logger.Infof("Client closed, client=%s", c.id)
	return err
}

func (c *Client) request(ctx context.Context, req *protocol.Request) (gjson.Result, error) {
	if c.closed.Load() {
		return gjson.Result{}, ErrClientClosed
	}
	req.ReplyTo = c.replyId.Inc()
	ch := make(chan []byte, 1)
	c.pending.Store(req.ReplyTo, ch)
	defer c.pending.Delete(req.ReplyTo)

	if err := c.stream.Send(ctx, req); err != nil {
		return gjson.Result{}, fmt.Errorf("send %s request failed, err=%w", req.Op, err)
	}

	select {
	case msg := <-ch:
		resp := gjson.ParseBytes(msg)
		if status := resp.Get("status").String(); status != protocol.StatusOK {
			return gjson.Result{}, fmt.Errorf("%s request failed, status=%s, message=%s", req.Op, status, resp.Get("message").String())
		}
		return resp.Get("data"), nil
	case <-c.lost:
		return gjson.Result{}, c.lostErr
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	}
}

// shutdown fails everything waiting on the scheduler with err. Only the first call counts.
func (c *Client) shutdown(err error) {
	c.lostOnce.Do(func() {
		c.lostErr = err
		close(c.lost)
		c.actorSystem.Root.Send(c.routerPid, &streamClosed{err: err})
	})
}

type dispatcher struct {
	client *Client
}

var _ remoting.Dispatcher = &dispatcher{}

func (d *dispatcher) OnResponse(replyTo int64, msg []byte) {
	v, ok := d.client.pending.LoadAndDelete(replyTo)
	if !ok {
		logger.Warnf("Receive response nobody waits for, reply_to=%d", replyTo)
		return
	}
	v.(chan []byte) <- msg
}

func (d *dispatcher) OnKeyInMemory(key string, result gjson.Result, worker string) {
	d.client.actorSystem.Root.Send(d.client.routerPid, &taskFinished{key: key, result: result, worker: worker})
}

func (d *dispatcher) OnTaskErred(key, exception, traceback, worker string) {
	d.client.actorSystem.Root.Send(d.client.routerPid, &taskErred{
		key:       key,
		exception: exception,
		traceback: traceback,
		worker:    worker,
	})
}

func (d *dispatcher) OnStreamLost(err error) {
	d.client.shutdown(fmt.Errorf("%w: %v", ErrConnectionLost, err))
}
