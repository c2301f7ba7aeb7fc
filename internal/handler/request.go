package handler

import (
	"net/http"
	"strconv"

	"content-paywall/internal/dto"
	"content-paywall/internal/middleware"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

type RequestHandler struct {
	requestService service.CustomRequestService
}

func NewRequestHandler(requestService service.CustomRequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	var req dto.SubmitRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	request, err := h.requestService.Submit(ctx, account.ID, req.Description)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.CustomRequestResponse{
		ID:          request.ID,
		Description: request.Description,
		Status:      string(request.Status),
	})
}

func (h *RequestHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}
	requestID, err := strconv.ParseUint(c.Param("requestID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	result, err := h.requestService.Pay(ctx, account.ID, uint(requestID))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.CustomRequestResponse{
		ID:          result.Request.ID,
		Description: result.Request.Description,
		Price:       result.Request.Price,
		Status:      string(result.Request.Status),
		ApprovalURL: result.ApproveURL,
	})
}
