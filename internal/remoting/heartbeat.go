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
	"math"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/load"

	"github.com/batch-workshop/mnp-hello/internal/protocol"
	"github.com/batch-workshop/mnp-hello/logger"
)

// KeepHeartbeat tells the scheduler this client is alive until ctx is done.
func KeepHeartbeat(ctx context.Context, stream *Stream, clientID string, interval time.Duration) {
	heartbeat := func() {
		if err := stream.Send(ctx, genHeartbeatRequest(clientID)); err != nil {
			if stream.IsClosed() {
				return
			}
			logger.Warnf("Write heartbeat to scheduler failed, reason=%s", err.Error())
			return
		}
		logger.Debugf("Write heartbeat to scheduler succeed.")
	}
	heartbeat()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			heartbeat()
		}
	}
}

func getLoadAvg() ([]float64, error) {
	avg, err := load.Avg()
	if err != nil {
		return nil, err
	}
	return []float64{avg.Load1, avg.Load5, avg.Load15}, nil
}

func metrics() map[string]float64 {
	memstats := new(runtime.MemStats)
	runtime.ReadMemStats(memstats)

	ret := map[string]float64{
		"cpuProcessors": float64(runtime.NumCPU()),
		"heapUsage":     float64(memstats.HeapInuse) / math.Max(float64(memstats.HeapSys), 1),
		"heapUsedMB":    float64(memstats.HeapInuse) / 1024 / 1024,
		"goroutines":    float64(runtime.NumGoroutine()),
	}
	if usage, err := disk.Usage("/"); err == nil {
		ret["diskUsage"] = usage.UsedPercent / 100
		ret["diskUsedMB"] = float64(usage.Used) / 1024 / 1024
	}
	loadAvg, err := getLoadAvg()
	if err != nil {
		logger.Debugf("Failed to get system load average: %s", err.Error())
		return ret
	}
	ret["cpuLoad1"] = loadAvg[0]
	ret["cpuLoad5"] = loadAvg[1]
	ret["cpuLoad15"] = loadAvg[2]
	return ret
}

func genHeartbeatRequest(clientID string) *protocol.HeartbeatClient {
	return &protocol.HeartbeatClient{
		Op:      protocol.OpHeartbeatClient,
		Client:  clientID,
		Metrics: metrics(),
	}
}
