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

package remoting

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/batch-workshop/mnp-hello/internal/remoting/codec"
	"github.com/batch-workshop/mnp-hello/internal/remoting/connpool"
	"github.com/batch-workshop/mnp-hello/internal/remoting/trans"
)

// Stream is the message stream between this client and the scheduler. Sends may come from
// several goroutines; Recv must only be called from one.
type Stream struct {
	pool      connpool.ConnPool
	codec     codec.Codec
	writeLock sync.Mutex
	closed    *atomic.Bool
}

func NewStream(pool connpool.ConnPool, c codec.Codec) *Stream {
	return &Stream{
		pool:   pool,
		codec:  c,
		closed: atomic.NewBool(false),
	}
}

// Connect dials and handshakes if that has not happened yet.
func (s *Stream) Connect(ctx context.Context) error {
	_, err := s.pool.Get(ctx)
	return err
}

func (s *Stream) Send(ctx context.Context, msg interface{}) error {
	payload, err := codec.Marshal(s.codec, msg)
	if err != nil {
		return fmt.Errorf("encode message failed, err=%w", err)
	}
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return err
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return trans.WriteFrame(conn, payload)
}

// Recv blocks until the next message arrives and returns it in JSON form.
func (s *Stream) Recv(ctx context.Context) ([]byte, error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := trans.ReadFrame(conn)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(payload)
}

func (s *Stream) Close() error {
	s.closed.Store(true)
	return s.pool.Close()
}

func (s *Stream) IsClosed() bool {
	return s.closed.Load()
}
