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

	"github.com/tidwall/gjson"

	"github.com/batch-workshop/mnp-hello/internal/protocol"
	"github.com/batch-workshop/mnp-hello/logger"
)

// Dispatcher receives the scheduler messages the client has to act on.
type Dispatcher interface {
	OnResponse(replyTo int64, msg []byte)
	OnKeyInMemory(key string, result gjson.Result, worker string)
	OnTaskErred(key, exception, traceback, worker string)
	OnStreamLost(err error)
}

// OnMsgReceived reads the stream until it is closed. A read failure on a stream nobody closed
// is reported once through OnStreamLost.
func OnMsgReceived(ctx context.Context, stream *Stream, d Dispatcher) {
	for {
		msg, err := stream.Recv(ctx)
		if err != nil {
			if stream.IsClosed() || ctx.Err() != nil {
				return
			}
			logger.Errorf("OnMsgReceived broke pipe, err=%s", err.Error())
			d.OnStreamLost(err)
			return
		}
		dispatch(msg, d)
	}
}

func dispatch(msg []byte, d Dispatcher) {
	parsed := gjson.ParseBytes(msg)
	switch op := parsed.Get("op").String(); op {
	case protocol.OpResponse:
		d.OnResponse(parsed.Get("reply_to").Int(), msg)
	case protocol.OpKeyInMemory:
		d.OnKeyInMemory(parsed.Get("key").String(), parsed.Get("result"), parsed.Get("worker").String())
	case protocol.OpTaskErred:
		d.OnTaskErred(
			parsed.Get("key").String(),
			parsed.Get("exception").String(),
			parsed.Get("traceback").String(),
			parsed.Get("worker").String())
	case protocol.OpLogEvent:
		if topic := parsed.Get("topic").String(); topic != protocol.TopicForwardLogging {
			logger.Debugf("Receive log event with topic=%s, ignored", topic)
			return
		}
		record := parsed.Get("record")
		logger.Forward(logger.Record{
			Name:      record.Get("name").String(),
			LevelName: record.Get("levelname").String(),
			Msg:       record.Get("msg").String(),
			Worker:    record.Get("worker").String(),
		})
	case protocol.OpHeartbeat:
		logger.Debugf("Receive heartbeat from scheduler, heartbeat=%s", msg)
	default:
		logger.Errorf("Unknown msg type, op=%q, msg=%s", op, msg)
	}
}
