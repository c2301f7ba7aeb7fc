package handler

import (
	"net/http"

	"content-paywall/internal/dto"
	"content-paywall/internal/middleware"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

type LoyaltyHandler struct {
	loyaltyService service.LoyaltyService
}

func NewLoyaltyHandler(loyaltyService service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyaltyService: loyaltyService}
}

func (h *LoyaltyHandler) Rewards(c echo.Context) error {
	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	out := make([]dto.RewardEntry, 0, len(service.RewardCatalog))
	for _, r := range service.RewardCatalog {
		out = append(out, dto.RewardEntry{
			Key:        r.Key,
			Name:       r.Name,
			Points:     r.Points,
			Affordable: account.LoyaltyPoints >= r.Points,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoyaltyHandler) Redeem(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	var req dto.RedeemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.loyaltyService.Redeem(ctx, account.ID, req.Reward, req.ItemID)
	if err != nil {
		return httpError(err)
	}

	resp := dto.RedeemResponse{
		Reward:           result.Reward.Key,
		PointsSpent:      result.Reward.Points,
		PointsRemaining:  result.PointsRemaining,
		ArmedDiscountPct: result.ArmedDiscountPct,
	}
	if result.GrantedItem != nil {
		resp.GrantedItemID = &result.GrantedItem.ID
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *LoyaltyHandler) History(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	redemptions, err := h.loyaltyService.Redemptions(ctx, account.ID, 20)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, redemptions)
}
