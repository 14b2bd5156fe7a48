package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"strata-violations/internal/http/middleware"
	"strata-violations/internal/service"
)

func (h *Handler) linkStatus(c *gin.Context) {
	result, err := h.disputeService.LinkStatus(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handlePublicError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) sendCode(c *gin.Context) {
	var req struct {
		PersonID int64 `json:"personId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("personId is required"))
		return
	}

	result, err := h.disputeService.SendCode(c.Request.Context(), c.Param("token"), req.PersonID)
	if err != nil {
		h.handlePublicError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) verifyCode(c *gin.Context) {
	var req struct {
		PersonID int64  `json:"personId" binding:"required"`
		Code     string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("personId and code are required"))
		return
	}

	result, err := h.disputeService.VerifyCode(c.Request.Context(), c.Param("token"), req.PersonID, req.Code)
	if err != nil {
		h.handlePublicError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) submitDispute(c *gin.Context) {
	session, ok := middleware.MustOccupant(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("session missing"))
		return
	}

	var req service.DisputeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("comment is required"))
		return
	}

	view, err := h.disputeService.SubmitDispute(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		h.handlePublicError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(view))
}

// handlePublicError keeps messages generic; callers hold no account.
func (h *Handler) handlePublicError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, service.ErrLinkInvalid):
		c.JSON(http.StatusNotFound, errorResponse("this link is not valid"))
	case errors.Is(err, service.ErrLinkExpired):
		c.JSON(http.StatusGone, errorResponse("this link has expired"))
	case errors.Is(err, service.ErrLinkUsed):
		c.JSON(http.StatusGone, errorResponse("this link has already been used"))
	case errors.Is(err, service.ErrCodeInvalid):
		c.JSON(http.StatusBadRequest, errorResponse(service.ErrCodeInvalid.Error()))
	case errors.Is(err, service.ErrDeliveryFailed):
		c.JSON(http.StatusBadGateway, errorResponse("could not send the code, choose a recipient and try again"))
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse("not allowed"))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not found"))
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusConflict, errorResponse("this violation can no longer be disputed"))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse("this violation changed, reload and try again"))
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("public handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}
