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

package connpool

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/atomic"

	"github.com/batch-workshop/mnp-hello/logger"
)

var (
	_ ConnPool = &singleConnPool{}

	ErrPoolClosed = errors.New("connection pool is closed")
)

type ConnPool interface {
	Get(ctx context.Context) (net.Conn, error)
	Close() error
}

type singleConnPool struct {
	lock    sync.RWMutex
	conn    net.Conn
	dialer  func(ctx context.Context) (net.Conn, error)
	closed  *atomic.Bool
	options *Options
}

type Options struct {
	postDialer func(context.Context, net.Conn) error
}

type Option func(*Options)

func WithPostDialer(postDialer func(context.Context, net.Conn) error) Option {
	return func(o *Options) {
		o.postDialer = postDialer
	}
}

// NewSingleConnPool holds at most one connection, dialed on first Get. There is no reconnect:
// once the connection breaks the owner is expected to give up.
func NewSingleConnPool(dialer func(ctx context.Context) (net.Conn, error), opts ...Option) ConnPool {
	options := new(Options)
	for _, opt := range opts {
		opt(options)
	}

	return &singleConnPool{
		dialer:  dialer,
		closed:  atomic.NewBool(false),
		options: options,
	}
}

func (p *singleConnPool) newConn(ctx context.Context) (net.Conn, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}

	conn, err := p.dialer(ctx)
	if err != nil {
		return nil, err
	}

	// handshake success means connection is truly established
	if postDialer := p.options.postDialer; postDialer != nil {
		if err := postDialer(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	p.conn = conn
	logger.Debugf("Connection established, remoteAddr=%s, localAddr=%s", conn.RemoteAddr(), conn.LocalAddr())
	return conn, nil
}

func (p *singleConnPool) Get(ctx context.Context) (net.Conn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if conn := p.existing(); conn != nil {
		return conn, nil
	}
	// create a new connection if there is no existing connection
	return p.newConn(ctx)
}

func (p *singleConnPool) existing() net.Conn {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.conn
}

func (p *singleConnPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
