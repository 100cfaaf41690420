package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription creates or replaces a push subscription of the caller.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   mw.UserID(c),
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription); err != nil {
		writeError(c, apperr.Internal("Failed to save subscription", err))
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.store.DeleteSubscription(c.Request.Context(), mw.UserID(c), req.Endpoint)
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, apperr.NotFound("Subscription not found"))
		return
	}
	if err != nil {
		writeError(c, apperr.Internal("Failed to delete subscription", err))
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding; push endpoints are
// stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

type subscriptionResponse struct {
	Endpoint  string `json:"endpoint"`
	CreatedAt string `json:"createdAt"`
}

// GetSubscription returns one subscription of the caller when an endpoint is
// given, and all of them otherwise.
func (h *Handler) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	userID := mw.UserID(c)

	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok {
		subs, err := h.store.UserSubscriptions(ctx, userID)
		if err != nil {
			writeError(c, apperr.Internal("Failed to retrieve subscriptions", err))
			return
		}
		resp := make([]subscriptionResponse, len(subs))
		for i, s := range subs {
			resp[i] = toSubscriptionResponse(s)
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	if raw == "" {
		writeError(c, apperr.Validation("endpoint is required"))
		return
	}

	sub, err := h.store.GetSubscription(ctx, userID, raw)
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, apperr.NotFound("Subscription not found"))
		return
	}
	if err != nil {
		writeError(c, apperr.Internal("Failed to retrieve subscription", err))
		return
	}
	c.JSON(http.StatusOK, toSubscriptionResponse(*sub))
}

func toSubscriptionResponse(s model.PushSubscription) subscriptionResponse {
	return subscriptionResponse{Endpoint: s.Endpoint, CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339)}
}
