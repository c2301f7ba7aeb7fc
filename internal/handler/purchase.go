package handler

import (
	"net/http"
	"strconv"

	"content-paywall/internal/dto"
	"content-paywall/internal/middleware"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

type PurchaseHandler struct {
	orderService service.OrderService
}

func NewPurchaseHandler(orderService service.OrderService) *PurchaseHandler {
	return &PurchaseHandler{orderService: orderService}
}

func (h *PurchaseHandler) Purchase(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	var req dto.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.orderService.CreatePurchase(ctx, account.ID, req.ItemID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.PurchaseResponse{
		OrderID:         result.Order.ID,
		Amount:          result.Order.Amount,
		Currency:        result.Order.Currency,
		DiscountPercent: result.Quote.DiscountPercent,
		OnPromotion:     result.Quote.OnPromotion,
		ApprovalURL:     result.ApproveURL,
	})
}

func (h *PurchaseHandler) FreeUnlock(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	var req dto.FreeUnlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	record, err := h.orderService.FreeUnlock(ctx, account.ID, req.ItemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *PurchaseHandler) Redeliver(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}
	itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	if err := h.orderService.Redeliver(ctx, account.ID, uint(itemID)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "delivered"})
}
