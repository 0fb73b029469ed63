package handlers

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/swifttransit/booking-backend/internal/config"
	"github.com/swifttransit/booking-backend/internal/models"
	"github.com/swifttransit/booking-backend/internal/services"
)

// WebhookHandler receives asynchronous payment-gateway callbacks
type WebhookHandler struct {
	bookingService *services.BookingService
	payment        config.PaymentConfig
	logger         *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(bookingService *services.BookingService, payment config.PaymentConfig, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		bookingService: bookingService,
		payment:        payment,
		logger:         logger,
	}
}

// paymentWebhookPayload is the gateway's callback body. The invoice id
// carries our booking code; uid is the gateway's own transaction reference.
type paymentWebhookPayload struct {
	UID           string `json:"uid"`
	InvoiceID     string `json:"invoiceId"`
	Amount        string `json:"amount"`
	CurrencyCode  string `json:"currencyCode"`
	PaymentStatus string `json:"paymentStatus"` // "COMPLETED", "FAILED", "CANCELLED"
	CheckValue    string `json:"checkValue"`
}

// HandlePaymentWebhook processes a payment gateway callback
// @Summary Payment gateway webhook
// @Description Settles or fails bookings from asynchronous gateway notifications. Duplicate confirmations are acknowledged without side effects.
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Malformed payload"
// @Failure 401 {object} map[string]interface{} "Check value mismatch"
// @Router /payments/webhook [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	var payload paymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_REQUEST", "message": "malformed webhook payload"})
		return
	}

	if h.payment.MerchantToken != "" {
		expected := h.checkValue(payload.UID, payload.Amount, payload.CurrencyCode)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(payload.CheckValue))) != 1 {
			h.logger.WithFields(logrus.Fields{
				"uid":        payload.UID,
				"invoice_id": payload.InvoiceID,
			}).Warn("Webhook check value mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "INVALID_CHECK_VALUE"})
			return
		}
	}

	err := h.bookingService.SettleFromWebhook(c.Request.Context(), payload.UID, payload.InvoiceID, payload.PaymentStatus)
	if err != nil {
		if models.ErrCode(err) == "" {
			h.logger.WithError(err).WithField("uid", payload.UID).Error("Failed to apply payment webhook")
		}
		respondError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "webhook processed", nil)
}

// checkValue reproduces the gateway's two-step SHA-512 signature:
// hash1 = SHA512(merchantToken), check = SHA512(key|uid|amount|currency|hash1),
// both uppercase hex.
func (h *WebhookHandler) checkValue(uid, amount, currencyCode string) string {
	hash1 := sha512.Sum512([]byte(h.payment.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s", h.payment.MerchantKey, uid, amount, currencyCode, hash1Hex)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}
