package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/internal/service"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
	"github.com/blocklearn/blocklearn-api/pkg/response"
)

// PaymentHandler wires HTTP endpoints to the payment service.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// History godoc
// @Summary Payment history
// @Description Transactions where the caller is payer or payee
// @Tags Payments
// @Produce json
// @Param type query string false "BOOKING or COURSE"
// @Param status query string false "PENDING, COMPLETED or REFUNDED"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.TransactionFilter{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := c.Query("type"); raw != "" {
		t := models.TransactionType(raw)
		filter.Type = &t
	}
	if raw := c.Query("status"); raw != "" {
		s := models.TransactionStatus(raw)
		filter.Status = &s
	}

	transactions, pagination, err := h.service.History(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, transactions, pagination)
}

// Earnings godoc
// @Summary Instructor earnings dashboard
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/earnings [get]
func (h *PaymentHandler) Earnings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Earnings(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportEarnings godoc
// @Summary Export earnings report
// @Description Download the monthly earnings breakdown as CSV or PDF
// @Tags Payments
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /payments/earnings/export [get]
func (h *PaymentHandler) ExportEarnings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	stamp := time.Now().UTC().Format("2006-01-02")

	switch format {
	case "csv":
		data, err := h.service.ExportEarningsCSV(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"earnings-%s.csv\"", stamp))
		c.Data(http.StatusOK, "text/csv", data)
	case "pdf":
		data, err := h.service.ExportEarningsPDF(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"earnings-%s.pdf\"", stamp))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
