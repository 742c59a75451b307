package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/dto"
	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/server/httperr"
	"github.com/zintix-labs/afterparty/server/netsvr/middleware"
	"github.com/zintix-labs/afterparty/server/svrcfg"
)

// Init 回傳遊戲設定快照與未完成 bonus 的續局資訊。
// 客戶端必須在下注前呼叫一次，拿到 allowedBets 與功能開關。
func (c *InitHandler) Init(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(q.Context(), 5*time.Second)
	defer cancel()

	info, err := c.rt.Init(ctx, middleware.GetPlayerID(q))
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	resp := dto.NewInitResponse(c.rt.Engine().Config(), info)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// ============================================================
// ** InitHandler **
// ============================================================

type InitHandler struct {
	rt *afterparty.Runtime
}

func NewInitHandler(sCfg *svrcfg.SvrCfg) (*InitHandler, error) {
	if sCfg.Runtime == nil {
		return nil, errs.NewFatal("build init handler error: nil runtime")
	}
	return &InitHandler{rt: sCfg.Runtime}, nil
}
