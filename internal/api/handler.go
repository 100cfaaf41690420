package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *allocation.Service
	store   store.Store
	webpush *webpush.Options
	metrics *metrics.Metrics
}

// NewHandler creates a new API handler.
func NewHandler(svc *allocation.Service, s store.Store, webpushOptions *webpush.Options, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
		metrics: m,
	}
}
