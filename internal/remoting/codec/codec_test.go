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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/batch-workshop/mnp-hello/internal/protocol"
)

func TestCodecsPreserveMessage(t *testing.T) {
	msg := protocol.KeyInMemory{
		Op:     protocol.OpKeyInMemory,
		Key:    "hello-abc-7",
		Result: []byte(`"7: Hello from Worker ip-10-0-0-2"`),
		Worker: "tcp://10.0.0.2:40000",
	}

	for _, format := range []string{FormatJSON, FormatProtobuf} {
		t.Run(format, func(t *testing.T) {
			c, err := New(format)
			require.NoError(t, err)
			assert.Equal(t, format, c.Name())

			payload, err := Marshal(c, msg)
			require.NoError(t, err)
			decoded, err := c.Decode(payload)
			require.NoError(t, err)

			assert.Equal(t, protocol.OpKeyInMemory, protocol.Op(decoded))
			assert.Equal(t, "hello-abc-7", gjson.GetBytes(decoded, "key").String())
			assert.Equal(t, "7: Hello from Worker ip-10-0-0-2", gjson.GetBytes(decoded, "result").String())
		})
	}
}

func TestProtobufCodecNumbers(t *testing.T) {
	c, err := New(FormatProtobuf)
	require.NoError(t, err)

	payload, err := c.Encode([]byte(`{"op":"update-graph","tasks":[{"key":"hello-x-3","func":"hello","args":[3]}]}`))
	require.NoError(t, err)
	decoded, err := c.Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, int64(3), gjson.GetBytes(decoded, "tasks.0.args.0").Int())
}

func TestCodecRejectsGarbage(t *testing.T) {
	j, _ := New(FormatJSON)
	_, err := j.Decode([]byte("{not json"))
	assert.Error(t, err)

	p, _ := New(FormatProtobuf)
	_, err = p.Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)

	_, err = New("pickle")
	assert.Error(t, err)
}
