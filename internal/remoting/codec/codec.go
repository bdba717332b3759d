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
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Codec converts between the JSON form of a message, which the rest of the client works with,
// and the payload carried in a frame.
type Codec interface {
	Name() string
	Encode(msg []byte) ([]byte, error)
	Decode(payload []byte) ([]byte, error)
}

const (
	FormatJSON     = "json"
	FormatProtobuf = "protobuf"
)

func New(format string) (Codec, error) {
	switch format {
	case FormatJSON, "":
		return jsonCodec{}, nil
	case FormatProtobuf:
		return protoCodec{}, nil
	}
	return nil, fmt.Errorf("unknown wire format %q", format)
}

// Marshal encodes v as JSON and then with c.
func Marshal(c Codec, v interface{}) ([]byte, error) {
	msg, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.Encode(msg)
}

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return FormatJSON
}

func (jsonCodec) Encode(msg []byte) ([]byte, error) {
	if !json.Valid(msg) {
		return nil, fmt.Errorf("encode json message failed, invalid json: %.64s", msg)
	}
	return msg, nil
}

func (jsonCodec) Decode(payload []byte) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("decode json message failed, invalid json: %.64s", payload)
	}
	return payload, nil
}

// protoCodec carries messages as a google.protobuf.Struct.
type protoCodec struct{}

func (protoCodec) Name() string {
	return FormatProtobuf
}

func (protoCodec) Encode(msg []byte) ([]byte, error) {
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(msg, s); err != nil {
		return nil, fmt.Errorf("encode protobuf message failed, err=%w", err)
	}
	return proto.Marshal(s)
}

func (protoCodec) Decode(payload []byte) ([]byte, error) {
	s := new(structpb.Struct)
	if err := proto.Unmarshal(payload, s); err != nil {
		return nil, fmt.Errorf("decode protobuf message failed, err=%w", err)
	}
	return protojson.Marshal(s)
}
