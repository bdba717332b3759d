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

package hello

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/batch-workshop/mnp-hello/internal/utils"
	"github.com/batch-workshop/mnp-hello/processor"
	"github.com/batch-workshop/mnp-hello/processor/taskcontext"
)

func TestHello(t *testing.T) {
	ctx := taskcontext.NewTaskContext(context.Background())
	ctx.SetHostname("ip-10-0-0-7")
	ctx.SetArgs([]gjson.Result{gjson.Parse("12")})

	ret, err := new(Hello).Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, processor.InstanceStatusSucceed, ret.Status())
	assert.Equal(t, "12: Hello from Worker ip-10-0-0-7", ret.Result())
}

func TestHelloWithoutIndex(t *testing.T) {
	ctx := taskcontext.NewTaskContext(context.Background())
	ctx.SetHostname("w1")

	ret, err := new(Hello).Process(ctx)
	assert.ErrorIs(t, err, ErrMissingIndex)
	assert.Equal(t, processor.InstanceStatusFailed, ret.Status())
}

func TestHelloFallsBackToLocalHostname(t *testing.T) {
	ctx := taskcontext.NewTaskContext(context.Background())
	ctx.SetArgs([]gjson.Result{gjson.Parse("3")})

	ret, err := new(Hello).Process(ctx)
	require.NoError(t, err)
	host := utils.GetHostname()
	require.NotEmpty(t, host)
	assert.Equal(t, "3: Hello from Worker "+host, ret.Result())
}
