package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xdose/go-ingest/core"
	"github.com/xdose/go-ingest/providers/mux"
	"github.com/xdose/go-ingest/providers/nowpayments"
)

// Processor runs one raw webhook delivery through verify -> handle -> audit.
type Processor interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// UploadClient is the slice of the video provider client the API needs.
type UploadClient interface {
	CreateDirectUpload(ctx context.Context, in mux.CreateUploadInput) (mux.DirectUpload, error)
}

// PaymentClient is the slice of the payment gateway client the API needs.
type PaymentClient interface {
	CreatePayment(ctx context.Context, in nowpayments.CreatePaymentInput) (nowpayments.PaymentDetails, error)
}

type Dependencies struct {
	MuxWebhooks     Processor
	PaymentWebhooks Processor
	Videos          core.VideoStore
	Payments        core.PaymentStore
	Uploads         UploadClient
	Gateway         PaymentClient
	Logger          core.Logger
	Metrics         core.MetricsRecorder
}

// Server exposes the webhook intake and the thin creator-facing API.
type Server struct {
	cfg  core.ServerConfig
	deps Dependencies
	now  func() time.Time

	httpServer *http.Server
}

func NewServer(cfg core.ServerConfig, deps Dependencies) (*Server, error) {
	if deps.MuxWebhooks == nil || deps.PaymentWebhooks == nil {
		return nil, fmt.Errorf("httpapi: webhook processors are required")
	}
	if deps.Videos == nil || deps.Payments == nil {
		return nil, fmt.Errorf("httpapi: video and payment stores are required")
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc("/webhooks/mux", s.requirePost(s.handleWebhook(s.deps.MuxWebhooks)))
	router.HandleFunc("/webhooks/nowpayments", s.requirePost(s.handleWebhook(s.deps.PaymentWebhooks)))
	router.HandleFunc("/api/videos/upload", s.requirePost(s.handleCreateUpload))
	router.HandleFunc("/api/payments", s.handlePayments)
	router.HandleFunc("/healthz", s.handleHealth)
	return router
}

// Run serves until the context is canceled, then drains connections within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("httpapi: server is not configured")
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		core.LogInfo(ctx, s.deps.Logger, "http server listening", map[string]any{
			"addr": s.cfg.Addr,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown http server: %w", err)
	}
	return <-errCh
}
