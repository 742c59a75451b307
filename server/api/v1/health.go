// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/afterparty/store"
)

// HealthHandler 為存活探針：回報行程存活與儲存層連線。
// 儲存層 ping 失敗回 503/degraded，讓編排器在 spin 開始報錯前就換掉實例。
type HealthHandler struct {
	st store.Store
}

func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{st: st}
}

func (c *HealthHandler) Health(w http.ResponseWriter, q *http.Request) {
	status := "ok"
	code := http.StatusOK

	if c.st != nil {
		ctx, cancel := context.WithTimeout(q.Context(), 2*time.Second)
		defer cancel()
		if err := c.st.Ping(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
