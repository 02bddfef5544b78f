package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/neboloop/cocosbot/internal/config"
	"github.com/neboloop/cocosbot/internal/httputil"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/market"
	"github.com/neboloop/cocosbot/internal/metrics"
	"github.com/neboloop/cocosbot/internal/middleware"
	"github.com/neboloop/cocosbot/internal/types"
)

// Broker is the session the API drives. *client.Client implements it.
type Broker interface {
	PortfolioData(ctx context.Context) (any, error)
	PortfolioBalance(ctx context.Context) (float64, error)
	Orders(ctx context.Context) (any, error)
	MarketSchedule(ctx context.Context) (any, error)
	MEPRate(ctx context.Context) (any, error)
	MEPPrices(ctx context.Context) (*market.MEPPrices, error)
	TickerInfo(ctx context.Context, ticker string, segment types.MarketSegment, subSegment string) (any, error)
	LinkedAccounts(ctx context.Context, amount float64, currency types.Currency) (any, error)
	CreateOrder(ctx context.Context, req types.OrderRequest) error
	CancelOrder(ctx context.Context, amount, quantity float64) types.Outcome
}

// NewRouter returns the API handler. /health and /metrics are public;
// everything under /api/v1 requires a bearer token signed with jwtSecret.
func NewRouter(b Broker, jwtSecret string, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logging.WithComponent("http")))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	h := &handlers{broker: b}
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret))

		r.Get("/portfolio", h.data(b.PortfolioData))
		r.Get("/portfolio/balance", h.balance)
		r.Get("/orders", h.data(b.Orders))
		r.Post("/orders", h.createOrder)
		r.Delete("/orders", h.cancelOrder)
		r.Get("/market/schedule", h.data(b.MarketSchedule))
		r.Get("/market/mep", h.mep)
		r.Get("/market/tickers/{segment}/{ticker}", h.ticker)
		r.Get("/accounts/linked", h.linkedAccounts)
	})
	return r
}

// Run serves the API on c.Server.Addr until ctx is cancelled.
func Run(ctx context.Context, c config.Config, b Broker, m *metrics.Metrics) error {
	if c.Server.JWTSecret == "" {
		return errors.New("server.jwtSecret is required")
	}
	ln, err := net.Listen("tcp", c.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.Server.Addr, err)
	}

	httpServer := &http.Server{
		Handler:           NewRouter(b, c.Server.JWTSecret, m),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Infof("API listening on http://%s", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request at debug level and failures at
// warn level.
func requestLogger(log *logging.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			entry := log.WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", ww.Status()).
				WithField("elapsed", time.Since(start).String()).
				WithField("request_id", chimw.GetReqID(r.Context()))
			if ww.Status() >= 500 {
				entry.Warn("request failed")
			} else {
				entry.Debug("request")
			}
		})
	}
}
