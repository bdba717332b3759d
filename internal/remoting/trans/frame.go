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

package trans

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/batch-workshop/mnp-hello/internal/constants"
)

// WriteFrame writes data prefixed with its big-endian uint32 length.
func WriteFrame(conn net.Conn, data []byte) error {
	if len(data) > constants.TransportFrameMax {
		return fmt.Errorf("frame too large, size=%d max=%d", len(data), constants.TransportFrameMax)
	}
	buf := new(bytes.Buffer)
	buf.Grow(constants.TransportHeaderSize + len(data))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	buf.Write(data)

	_ = conn.SetWriteDeadline(time.Now().Add(constants.WriteTimeout))
	_, err := conn.Write(buf.Bytes())
	return err
}

// ReadFrame reads one length-prefixed frame and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	hdrBuf := make([]byte, constants.TransportHeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return nil, err
	}

	dataLen := binary.BigEndian.Uint32(hdrBuf)
	if dataLen > constants.TransportFrameMax {
		return nil, fmt.Errorf("frame too large, size=%d max=%d", dataLen, constants.TransportFrameMax)
	}
	dataBuf := make([]byte, dataLen)
	n, err := io.ReadFull(r, dataBuf)
	if err != nil {
		return nil, fmt.Errorf("read payload failed, read bytes=%d but expect bytes=%d: %w", n, dataLen, err)
	}
	return dataBuf, nil
}
