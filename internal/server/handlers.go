package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/httputil"
	"github.com/neboloop/cocosbot/internal/market"
	"github.com/neboloop/cocosbot/internal/types"
)

type handlers struct {
	broker Broker
}

// writeError maps workflow errors onto status codes: bad input 400, no data
// 404, a failed order or cancel 502.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr  *types.ValidationError
		nd    *browser.NoDataError
		order *market.OrderError
	)
	switch {
	case errors.As(err, &verr):
		httputil.BadRequest(w, verr.Error())
	case errors.As(err, &nd):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
			Code: http.StatusNotFound, Message: "no data", Reason: string(nd.Reason),
		})
	case errors.As(err, &order):
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{
			Code: http.StatusBadGateway, Message: order.Error(), Step: order.Step,
		})
	default:
		httputil.InternalError(w, err.Error())
	}
}

func (h *handlers) data(fn func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, v)
	}
}

func (h *handlers) balance(w http.ResponseWriter, r *http.Request) {
	v, err := h.broker.PortfolioBalance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OkJSON(w, map[string]float64{"totalBalance": v})
}

func (h *handlers) mep(w http.ResponseWriter, r *http.Request) {
	if httputil.QueryString(r, "raw", "") == "true" {
		h.data(h.broker.MEPRate)(w, r)
		return
	}
	prices, err := h.broker.MEPPrices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OkJSON(w, prices)
}

type tickerRequest struct {
	Segment string `path:"segment"`
	Ticker  string `path:"ticker"`
	Sub     string `form:"sub"`
}

func (h *handlers) ticker(w http.ResponseWriter, r *http.Request) {
	var req tickerRequest
	if err := httputil.Parse(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	seg, err := types.ValidateMarketType(req.Segment)
	if err != nil {
		writeError(w, err)
		return
	}
	h.data(func(ctx context.Context) (any, error) {
		return h.broker.TickerInfo(ctx, req.Ticker, seg, req.Sub)
	})(w, r)
}

type linkedRequest struct {
	Amount   float64 `form:"amount"`
	Currency string  `form:"currency"`
}

func (h *handlers) linkedAccounts(w http.ResponseWriter, r *http.Request) {
	var req linkedRequest
	if err := httputil.Parse(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var currency types.Currency
	if req.Currency != "" {
		c, err := types.ValidateCurrency(req.Currency)
		if err != nil {
			writeError(w, err)
			return
		}
		currency = c
	}
	if req.Amount < 0 {
		httputil.BadRequest(w, "amount must not be negative")
		return
	}
	h.data(func(ctx context.Context) (any, error) {
		return h.broker.LinkedAccounts(ctx, req.Amount, currency)
	})(w, r)
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := httputil.Parse(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	req, err := types.ValidateOrder(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.broker.CreateOrder(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, types.Succeeded())
}

func (h *handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req types.CancelRequest
	if err := httputil.Parse(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Amount <= 0 || req.Quantity <= 0 {
		httputil.BadRequest(w, "amount and quantity must be positive")
		return
	}
	out := h.broker.CancelOrder(r.Context(), req.Amount, req.Quantity)
	if !out.Success {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{
			Code: http.StatusBadGateway, Message: out.String(), Step: out.Step,
		})
		return
	}
	httputil.OkJSON(w, out)
}
