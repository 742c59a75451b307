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

package svrcfg

import (
	"log/slog"

	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/server/logger"
	"github.com/zintix-labs/afterparty/store"
)

// SvrCfg 為 server 組裝所需的依賴集合。
// 所有依賴都由外層明確注入；server 套件不讀檔案、不碰環境變數。
type SvrCfg struct {
	Log     *slog.Logger
	Runtime *afterparty.Runtime

	// Store 供 health 探針 ping 用；nil 時探針只回報行程存活
	Store store.Store
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}

	if sc.Runtime == nil {
		return errs.NewFatal("runtime is required")
	}
	if sc.Runtime.Closed() {
		return errs.NewFatal("runtime is closed")
	}
	return nil
}
