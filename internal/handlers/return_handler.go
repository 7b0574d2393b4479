package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"returns-service/internal/services"
)

// ReturnServiceInterface is what the handler needs from ReturnService
type ReturnServiceInterface interface {
	CheckOrderReturn(ctx context.Context, email, orderID string) ([]services.ReturnLineView, error)
	RequestOrderReturn(ctx context.Context, input services.ReturnRequestInput) (*services.ReturnRequestResult, error)
}

// ReturnHandler handles the storefront return endpoints
type ReturnHandler struct {
	service ReturnServiceInterface
	logger  *logrus.Entry
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(service ReturnServiceInterface, logger *logrus.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: service,
		logger:  logger.WithField("component", "return-handler"),
	}
}

// CheckOrderReturn reports return eligibility for every line of an order
// @Summary Check order return eligibility
// @Tags Returns
// @Accept json
// @Produce json
// @Param request body services.CheckReturnInput true "Order and requester"
// @Success 200 {array} services.ReturnLineView
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /rest/V1/checkOrderReturn [post]
func (h *ReturnHandler) CheckOrderReturn(c *gin.Context) {
	var input services.CheckReturnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	views, err := h.service.CheckOrderReturn(c.Request.Context(), input.RequesterEmail(), input.Order())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// RequestOrderReturn records a batch of return requests
// @Summary Request order return
// @Tags Returns
// @Accept json
// @Produce json
// @Param request body services.ReturnRequestInput true "Return request"
// @Success 200 {object} services.ReturnRequestResult
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /rest/V1/requestOrderReturn [post]
func (h *ReturnHandler) RequestOrderReturn(c *gin.Context) {
	var input services.ReturnRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.service.RequestOrderReturn(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondError answers with the status carried by a service error. Internal
// messages are logged and never sent to the client.
func (h *ReturnHandler) respondError(c *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) && se.Kind != services.KindInternal {
		c.JSON(se.Kind.HTTPStatus(), gin.H{"error": se.Message})
		return
	}

	h.logger.WithError(err).WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("request_id"),
	}).Error("Unhandled error")
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
