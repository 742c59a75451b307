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

func (c *SpinHandler) Spin(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeSpinRequest(q)
	if err != nil {
		httperr.Errs(w, errs.NewCode(errs.CodeInvalidRequest, err.Error()))
		return
	}
	// 請求解析完成，設置超時 context
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rec, err := c.rt.Spin(ctx, afterparty.SpinInput{
		PlayerID:        middleware.GetPlayerID(q),
		ClientRequestID: req.ClientRequestID,
		Bet:             req.BetAmount,
		Mode:            afterparty.SpinMode(req.Mode),
		HypeMode:        req.HypeMode,
	})
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	resp := dto.NewSpinResponse(c.rt.Engine().Config(), rec)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// ============================================================
// ** SpinHandler **
// ============================================================

type SpinHandler struct {
	rt *afterparty.Runtime
}

func NewSpinHandler(sCfg *svrcfg.SvrCfg) (*SpinHandler, error) {
	if sCfg.Runtime == nil {
		return nil, errs.NewFatal("build spin handler error: nil runtime")
	}
	return &SpinHandler{rt: sCfg.Runtime}, nil
}
