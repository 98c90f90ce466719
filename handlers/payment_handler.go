package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"

	"league-system/models"
	"league-system/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Register(g *echo.Group) {
	g.POST("/payments", h.CreatePayment)
	g.GET("/payments", h.ListPayments)
	g.GET("/payments/:paymentId", h.GetPayment)
	g.POST("/payments/:paymentId/confirm", h.ConfirmPayment)
	g.POST("/payments/:paymentId/refund", h.RefundPayment)
}

func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		UserID      string            `json:"user_id"`
		Amount      string            `json:"amount"`
		Currency    string            `json:"currency"`
		Provider    string            `json:"provider"`
		Description string            `json:"description"`
		ReturnURL   string            `json:"return_url"`
		Metadata    map[string]string `json:"metadata"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return writeError(c, models.ErrInvalidAmount)
	}

	payment, err := h.paymentService.CreatePayment(c.Request().Context(), services.CreatePaymentRequest{
		TenantID:    tenant,
		UserID:      req.UserID,
		Amount:      amount,
		Currency:    req.Currency,
		Provider:    models.Provider(req.Provider),
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, payment)
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	payment, err := h.paymentService.GetPayment(c.Request().Context(), tenant, c.PathParam("paymentId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) ListPayments(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	payments, err := h.paymentService.ListPayments(c.Request().Context(), tenant,
		c.QueryParam("user_id"), models.PaymentStatus(c.QueryParam("status")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"payments": payments})
}

func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		ProviderPaymentID string `json:"provider_payment_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	payment, err := h.paymentService.ConfirmPayment(c.Request().Context(), tenant, c.PathParam("paymentId"), req.ProviderPaymentID)
	if err != nil {
		// A decline settles the record as failed; return it alongside the
		// status so the client can show why.
		if errors.Is(err, models.ErrPaymentDeclined) && payment != nil {
			return c.JSON(http.StatusPaymentRequired, payment)
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	tenant := tenantID(c)
	if tenant == "" {
		return missingTenant(c)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	payment, err := h.paymentService.RefundPayment(c.Request().Context(), tenant, c.PathParam("paymentId"), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}
