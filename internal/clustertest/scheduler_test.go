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

package clustertest

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/batch-workshop/mnp-hello/internal/protocol"
	"github.com/batch-workshop/mnp-hello/internal/remoting"
	"github.com/batch-workshop/mnp-hello/internal/remoting/codec"
	"github.com/batch-workshop/mnp-hello/internal/remoting/connpool"
)

// rawClient talks to the scheduler without the distributed client on top.
func rawClient(t *testing.T, s *Scheduler, clientId string) *remoting.Stream {
	c, err := codec.New(codec.FormatJSON)
	require.NoError(t, err)
	addr := net.JoinHostPort(s.Host(), strconv.Itoa(s.Port()))
	pool := connpool.NewSingleConnPool(func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}, connpool.WithPostDialer(remoting.Handshake(c, clientId)))
	stream := remoting.NewStream(pool, c)
	require.NoError(t, stream.Connect(context.Background()))
	t.Cleanup(func() { _ = stream.Close() })
	return stream
}

func recvOp(t *testing.T, stream *remoting.Stream, op string) gjson.Result {
	for {
		msg, err := stream.Recv(context.Background())
		require.NoError(t, err)
		if protocol.Op(msg) == op {
			return gjson.ParseBytes(msg)
		}
	}
}

func TestSchedulerWorkerCounts(t *testing.T) {
	s, err := Start(WithWorkers("a", "b"), WithWorkerCounts(0, 3))
	require.NoError(t, err)
	defer s.Close()
	stream := rawClient(t, s, "Client-raw")
	ctx := context.Background()

	for i, want := range []int{0, 3, 3} {
		require.NoError(t, stream.Send(ctx, &protocol.Request{Op: protocol.OpSchedulerInfo, ReplyTo: int64(i + 1)}))
		resp := recvOp(t, stream, protocol.OpResponse)
		assert.Equal(t, int64(i+1), resp.Get("reply_to").Int())
		assert.Equal(t, protocol.StatusOK, resp.Get("status").String())
		assert.Len(t, resp.Get("data.workers").Map(), want)
	}
	assert.Equal(t, 3, s.InfoRequests())
	assert.Equal(t, []string{"Client-raw"}, s.Clients())
}

func TestSchedulerRunsTasks(t *testing.T) {
	s, err := Start(WithWorkers("w0"), WithThreads(1))
	require.NoError(t, err)
	defer s.Close()
	stream := rawClient(t, s, "Client-raw")

	require.NoError(t, stream.Send(context.Background(), &protocol.UpdateGraph{
		Op:     protocol.OpUpdateGraph,
		Client: "Client-raw",
		Tasks: []protocol.TaskSpec{
			{Key: "hello-t-0", Func: "hello", Args: []interface{}{0}},
			{Key: "nope-t-0", Func: "nope", Args: []interface{}{0}},
		},
	}))

	done := recvOp(t, stream, protocol.OpKeyInMemory)
	assert.Equal(t, "hello-t-0", done.Get("key").String())
	assert.Equal(t, "0: Hello from Worker w0", done.Get("result").String())

	erred := recvOp(t, stream, protocol.OpTaskErred)
	assert.Equal(t, "nope-t-0", erred.Get("key").String())
	assert.Contains(t, erred.Get("exception").String(), "task not found")
}

func TestSchedulerUnknownRequest(t *testing.T) {
	s, err := Start()
	require.NoError(t, err)
	defer s.Close()
	stream := rawClient(t, s, "Client-raw")

	require.NoError(t, stream.Send(context.Background(), &protocol.Request{Op: "gather", ReplyTo: 9}))
	resp := recvOp(t, stream, protocol.OpResponse)
	assert.Equal(t, protocol.StatusError, resp.Get("status").String())
	assert.Contains(t, resp.Get("message").String(), "gather")
}

func TestSchedulerCloseClient(t *testing.T) {
	s, err := Start()
	require.NoError(t, err)
	defer s.Close()
	stream := rawClient(t, s, "Client-raw")

	require.NoError(t, stream.Send(context.Background(), &protocol.CloseClient{Op: protocol.OpCloseClient, Client: "Client-raw"}))
	assert.Eventually(t, func() bool {
		return len(s.Clients()) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartRejectsBadOptions(t *testing.T) {
	_, err := Start(WithWorkers())
	assert.Error(t, err)
	_, err = Start(WithWireFormat("xml"))
	assert.Error(t, err)
}
