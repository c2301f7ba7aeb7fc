package handler

import (
	"errors"
	"net/http"

	"content-paywall/internal/dto"
	"content-paywall/internal/middleware"
	"content-paywall/internal/model"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) Plans(c echo.Context) error {
	return c.JSON(http.StatusOK, service.TierPlans)
}

func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	var req dto.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.subscriptionService.Subscribe(ctx, account.ID, model.Tier(req.Tier))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.SubscribeResponse{
		SubscriptionID: result.Subscription.ID,
		Tier:           string(result.Subscription.Tier),
		PriceMonthly:   result.Subscription.PriceMonthly,
		ApprovalURL:    result.ApproveURL,
	})
}

func (h *SubscriptionHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	sub, err := h.subscriptionService.ActiveFor(ctx, account.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.JSON(http.StatusOK, map[string]bool{"active": false})
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	sub, err := h.subscriptionService.Cancel(ctx, account.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sub)
}
