package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/service"
	apperrors "github.com/oakmart/storefront-backend/internal/errors"
	"github.com/oakmart/storefront-backend/internal/middleware"
)

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{
		reportService: reportService,
	}
}

type UpdateSubscriptionRequest struct {
	Recipients []string `json:"recipients" binding:"required,dive,email"`
	Enabled    bool     `json:"enabled"`
}

func reportKindFromParam(c *gin.Context) (model.ReportKind, bool) {
	switch c.Param("kind") {
	case string(model.ReportLowStock):
		return model.ReportLowStock, true
	case string(model.ReportDailySales):
		return model.ReportDailySales, true
	}
	return "", false
}

// GetSubscription returns a report subscription (admin)
// GET /api/v1/admin/reports/:kind
func (ctrl *ReportController) GetSubscription(c *gin.Context) {
	kind, ok := reportKindFromParam(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown report kind")
		return
	}

	sub, err := ctrl.reportService.GetSubscription(kind)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "Report subscription not found")
			return
		}
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// UpdateSubscription sets the recipient list for a report (admin)
// PUT /api/v1/admin/reports/:kind
func (ctrl *ReportController) UpdateSubscription(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	kind, ok := reportKindFromParam(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown report kind")
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Recipients must be valid email addresses")
		return
	}

	sub, err := ctrl.reportService.UpdateSubscription(kind, req.Recipients, req.Enabled)
	if err != nil {
		log.Error("Failed to update report subscription", err, map[string]interface{}{
			"kind": kind,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "report update")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Report subscription updated",
		"subscription": sub,
	})
}

// RunReport triggers a report immediately instead of waiting for its
// schedule (admin). Useful for verifying recipients after a change.
// POST /api/v1/admin/reports/:kind/run
func (ctrl *ReportController) RunReport(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	kind, ok := reportKindFromParam(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown report kind")
		return
	}

	var err error
	switch kind {
	case model.ReportLowStock:
		err = ctrl.reportService.SendLowStockReport(c.Request.Context())
	case model.ReportDailySales:
		err = ctrl.reportService.SendDailySalesReport(c.Request.Context(), time.Now().AddDate(0, 0, -1))
	}
	if err != nil {
		log.Error("Manual report run failed", err, map[string]interface{}{
			"kind": kind,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalExternalAPI, "Report delivery failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Report triggered"})
}
