package handler

import (
	"net/http"
	"strconv"

	"content-paywall/internal/dto"
	"content-paywall/internal/model"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

// AdminHandler hosts operator routes: content ingestion, campaigns,
// drip schedules and custom-request triage.
type AdminHandler struct {
	catalogService service.CatalogService
	requestService service.CustomRequestService
}

func NewAdminHandler(catalogService service.CatalogService, requestService service.CustomRequestService) *AdminHandler {
	return &AdminHandler{
		catalogService: catalogService,
		requestService: requestService,
	}
}

func (h *AdminHandler) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	item, err := h.catalogService.CreateItem(ctx, service.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		Tier:        model.Tier(req.Tier),
		Content:     req.Content,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	category, err := h.catalogService.CreateCategory(ctx, req.Name, req.SortOrder)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *AdminHandler) CreateCampaign(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	campaign, err := h.catalogService.CreateCampaign(ctx, service.CreateCampaignInput{
		Title:           req.Title,
		DiscountPercent: req.DiscountPercent,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		CategoryID:      req.CategoryID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, campaign)
}

func (h *AdminHandler) CreateDrip(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateDripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	drip, err := h.catalogService.ScheduleDrip(ctx, service.CreateDripInput{
		ItemID:       req.ItemID,
		TierRequired: model.Tier(req.TierRequired),
		SendAt:       req.SendAt,
		Message:      req.Message,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, drip)
}

func (h *AdminHandler) AcceptRequest(c echo.Context) error {
	ctx := c.Request().Context()

	requestID, err := strconv.ParseUint(c.Param("requestID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	var req dto.AcceptRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	request, err := h.requestService.Accept(ctx, uint(requestID), req.Price)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, request)
}

func (h *AdminHandler) RejectRequest(c echo.Context) error {
	ctx := c.Request().Context()

	requestID, err := strconv.ParseUint(c.Param("requestID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	request, err := h.requestService.Reject(ctx, uint(requestID))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, request)
}

func (h *AdminHandler) AttachResult(c echo.Context) error {
	ctx := c.Request().Context()

	requestID, err := strconv.ParseUint(c.Param("requestID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	var req dto.AttachResultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	request, err := h.requestService.AttachResult(ctx, uint(requestID), req.ItemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, request)
}
