package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/hydranet/hydrabill/internal/payment/domain"
)

type paymentEventRequest struct {
	TransactionID     string `json:"transaction_id"`
	AccountIdentifier string `json:"account_identifier"`
	Amount            int64  `json:"amount"`
	PaymentMethod     string `json:"payment_method"`
	Status            string `json:"status"`
	ReferenceType     string `json:"reference_type"`
	Timestamp         string `json:"timestamp"`
}

// HandlePaymentEvent accepts a payment-network callback. The response only
// acknowledges durable intake; allocation happens asynchronously.
func (s *Server) HandlePaymentEvent(c *gin.Context) {
	var req paymentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event := paymentdomain.InboundEvent{
		TransactionID:     req.TransactionID,
		AccountIdentifier: req.AccountIdentifier,
		Amount:            req.Amount,
		PaymentMethod:     req.PaymentMethod,
		Status:            req.Status,
		ReferenceType:     req.ReferenceType,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		event.Timestamp = ts
	}

	if err := s.intake.Accept(c.Request.Context(), event); err != nil {
		if errors.Is(err, paymentdomain.ErrDuplicateEvent) {
			c.JSON(http.StatusOK, gin.H{"accepted": true, "duplicate": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
