package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xdose/go-ingest/core"
	"github.com/xdose/go-ingest/providers/mux"
	"github.com/xdose/go-ingest/providers/nowpayments"
)

const maxWebhookBodyBytes int64 = 1 << 20

func (s *Server) requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
				"error": "Method not allowed",
			})
			return
		}
		next(w, r)
	}
}

// handleWebhook reads the raw body before anything touches it. The verifiers
// sign the exact wire bytes, so the body must never pass through a decode and
// re-encode round trip first.
func (s *Server) handleWebhook(processor Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := s.now()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Unreadable request body"})
			return
		}
		if int64(len(body)) > maxWebhookBodyBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "Request body too large"})
			return
		}

		result, err := processor.Process(r.Context(), core.InboundRequest{
			Headers: flattenHeaders(r.Header),
			Body:    body,
		})
		s.observeWebhook(r, result, started)
		if err != nil && result.StatusCode == 0 {
			s.writeError(w, r, err)
			return
		}

		statusCode := result.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		response := result.Response
		if len(response) == 0 {
			response = map[string]any{"received": result.Accepted}
		}
		writeJSON(w, statusCode, response)
	}
}

type createUploadRequest struct {
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	CORSOrigin string `json:"cors_origin"`
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Uploads == nil {
		s.writeError(w, r, core.NewInternalError("httpapi: upload client is not configured"))
		return
	}

	var in createUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(in.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing user id"})
		return
	}

	upload, err := s.deps.Uploads.CreateDirectUpload(r.Context(), mux.CreateUploadInput{
		CORSOrigin:  in.CORSOrigin,
		Passthrough: strings.TrimSpace(in.UserID),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	video, err := s.deps.Videos.Create(r.Context(), core.CreateVideoInput{
		UserID:   in.UserID,
		Title:    in.Title,
		UploadID: upload.ID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	core.LogInfo(r.Context(), s.deps.Logger, "direct upload created", map[string]any{
		"video_id":  video.ID,
		"upload_id": upload.ID,
		"user_id":   video.UserID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"video_id":   video.ID,
		"upload_id":  upload.ID,
		"upload_url": upload.URL,
		"status":     string(video.Status),
	})
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreatePayment(w, r)
	case http.MethodGet:
		s.handleGetPayment(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
	}
}

type createPaymentRequest struct {
	CreatorID     string  `json:"creator_id"`
	Kind          string  `json:"kind"`
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
	PayCurrency   string  `json:"pay_currency"`
	Description   string  `json:"description"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gateway == nil {
		s.writeError(w, r, core.NewInternalError("httpapi: payment gateway client is not configured"))
		return
	}

	var in createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(in.CreatorID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing creator id"})
		return
	}
	if in.PriceAmount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid price amount"})
		return
	}

	orderRef := core.OrderRef{
		IssuedAt:  s.now(),
		CreatorID: strings.TrimSpace(in.CreatorID),
		Kind:      strings.TrimSpace(in.Kind),
	}
	orderID := orderRef.OrderID()

	details, err := s.deps.Gateway.CreatePayment(r.Context(), nowpayments.CreatePaymentInput{
		PriceAmount:   in.PriceAmount,
		PriceCurrency: in.PriceCurrency,
		PayCurrency:   in.PayCurrency,
		OrderID:       orderID,
		Description:   in.Description,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := core.PaymentStatusWaiting
	if parsed, parseErr := core.ParsePaymentStatus(details.PaymentStatus); parseErr == nil {
		status = parsed
	}

	payment, err := s.deps.Payments.Create(r.Context(), core.CreatePaymentInput{
		PaymentID:     details.PaymentID.String(),
		OrderID:       orderID,
		CreatorID:     in.CreatorID,
		Kind:          orderRef.Kind,
		Status:        status,
		PayAmount:     details.PayAmount,
		PayCurrency:   details.PayCurrency,
		PriceAmount:   in.PriceAmount,
		PriceCurrency: in.PriceCurrency,
		PurchaseID:    details.PurchaseID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	core.LogInfo(r.Context(), s.deps.Logger, "payment opened", map[string]any{
		"payment_id": payment.PaymentID,
		"order_id":   payment.OrderID,
		"creator_id": payment.CreatorID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"payment_id":   payment.PaymentID,
		"order_id":     payment.OrderID,
		"pay_address":  details.PayAddress,
		"pay_amount":   details.PayAmount,
		"pay_currency": details.PayCurrency,
		"status":       string(payment.Status),
	})
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := strings.TrimSpace(r.URL.Query().Get("payment_id"))
	if paymentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing payment id"})
		return
	}

	payment, err := s.deps.Payments.GetByPaymentID(r.Context(), paymentID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Payment not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment_id":     payment.PaymentID,
		"order_id":       payment.OrderID,
		"creator_id":     payment.CreatorID,
		"kind":           payment.Kind,
		"status":         string(payment.Status),
		"pay_amount":     payment.PayAmount,
		"pay_currency":   payment.PayCurrency,
		"price_amount":   payment.PriceAmount,
		"price_currency": payment.PriceCurrency,
		"finalized":      payment.FinalizedAt != nil,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := core.MapError(err)
	status := core.HTTPStatus(err)
	core.LogError(r.Context(), s.deps.Logger, "request failed", map[string]any{
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	})
	message := "Internal server error"
	if status < http.StatusInternalServerError && mapped != nil {
		message = mapped.Message
	}
	writeJSON(w, status, map[string]any{"error": message})
}

func (s *Server) observeWebhook(r *http.Request, result core.InboundResult, started time.Time) {
	if s.deps.Metrics == nil {
		return
	}
	tags := map[string]string{
		"path":     r.URL.Path,
		"accepted": "false",
	}
	if result.Accepted {
		tags["accepted"] = "true"
	}
	s.deps.Metrics.IncCounter(r.Context(), "webhooks.received", 1, tags)
	s.deps.Metrics.ObserveHistogram(r.Context(), "webhooks.duration_ms",
		float64(s.now().Sub(started).Milliseconds()), tags)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
