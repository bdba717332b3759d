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
	"net"
	"time"

	"github.com/tidwall/gjson"

	"github.com/batch-workshop/mnp-hello/internal/constants"
	"github.com/batch-workshop/mnp-hello/internal/protocol"
	"github.com/batch-workshop/mnp-hello/internal/remoting/codec"
	"github.com/batch-workshop/mnp-hello/internal/remoting/trans"
	"github.com/batch-workshop/mnp-hello/internal/utils"
	"github.com/batch-workshop/mnp-hello/logger"
)

// Handshake returns a post-dial hook that registers clientID with the scheduler and waits
// for the stream to be opened.
func Handshake(c codec.Codec, clientID string) func(ctx context.Context, conn net.Conn) error {
	return func(ctx context.Context, conn net.Conn) error {
		if err := sendHandshake(c, clientID, conn); err != nil {
			return fmt.Errorf("write handshake to scheduler failed, err=%w", err)
		}

		deadline := time.Now().Add(constants.HandshakeTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		_ = conn.SetReadDeadline(deadline)
		defer conn.SetReadDeadline(time.Time{})

		payload, err := trans.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("wait handshake response failed, timeout=%s, err=%w", constants.HandshakeTimeout, err)
		}
		msg, err := c.Decode(payload)
		if err != nil {
			return fmt.Errorf("handshake read msg err=%w", err)
		}
		if op := protocol.Op(msg); op != protocol.OpStreamStart {
			return fmt.Errorf("receive unexpected msg when wait handshake response, op=%q", op)
		}
		logger.Infof("Receive handshake response, scheduler=%s", gjson.GetBytes(msg, "scheduler").String())
		return nil
	}
}

func sendHandshake(c codec.Codec, clientID string, conn net.Conn) error {
	host, _, err := utils.ParseIPAddr(conn.LocalAddr().String())
	if err != nil {
		if host, err = utils.GetIpv4AddrHost(); err != nil {
			host = utils.GetHostname()
		}
	}
	payload, err := codec.Marshal(c, &protocol.RegisterClient{
		Op:     protocol.OpRegisterClient,
		Client: clientID,
		Host:   host,
	})
	if err != nil {
		return err
	}
	return trans.WriteFrame(conn, payload)
}
