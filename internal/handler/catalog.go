package handler

import (
	"net/http"
	"strconv"

	"content-paywall/internal/dto"
	"content-paywall/internal/middleware"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalogService     service.CatalogService
	entitlementService service.EntitlementService
}

func NewCatalogHandler(catalogService service.CatalogService, entitlementService service.EntitlementService) *CatalogHandler {
	return &CatalogHandler{
		catalogService:     catalogService,
		entitlementService: entitlementService,
	}
}

func toListedItem(li *service.ListedItem) dto.ListedItem {
	return dto.ListedItem{
		ID:              li.Item.ID,
		Title:           li.Item.Title,
		Tier:            string(li.Item.Tier),
		Price:           li.Quote.Price,
		DiscountPercent: li.Quote.DiscountPercent,
		OnPromotion:     li.Quote.OnPromotion,
		Owned:           li.Owned,
	}
}

func (h *CatalogHandler) Browse(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}

	var categoryID *uint
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		v := uint(id)
		categoryID = &v
	}

	listed, err := h.catalogService.Browse(ctx, account.ID, categoryID)
	if err != nil {
		return httpError(err)
	}

	out := make([]dto.ListedItem, 0, len(listed))
	for _, li := range listed {
		out = append(out, toListedItem(li))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) Detail(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}
	itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	detail, err := h.catalogService.Detail(ctx, account.ID, uint(itemID))
	if err != nil {
		return httpError(err)
	}

	resp := dto.ItemDetailResponse{
		Item: dto.ListedItem{
			ID:              detail.Item.ID,
			Title:           detail.Item.Title,
			Tier:            string(detail.Item.Tier),
			Price:           detail.Quote.Price,
			DiscountPercent: detail.Quote.DiscountPercent,
			OnPromotion:     detail.Quote.OnPromotion,
			Owned:           detail.Owned,
		},
	}
	for _, rel := range detail.Related {
		resp.Related = append(resp.Related, dto.ListedItem{
			ID:    rel.ID,
			Title: rel.Title,
			Tier:  string(rel.Tier),
			Price: rel.Price,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) Categories(c echo.Context) error {
	categories, err := h.catalogService.Categories(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

// PublicPreview is unauthenticated; it only ever serves public-safe
// items at list price.
func (h *CatalogHandler) PublicPreview(c echo.Context) error {
	listed, err := h.catalogService.PublicPreview(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	out := make([]dto.ListedItem, 0, len(listed))
	for _, li := range listed {
		out = append(out, toListedItem(li))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) Me(c echo.Context) error {
	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.AccountResponse{
		ID:            account.ID,
		Username:      account.Username,
		Tier:          string(account.Tier),
		TotalSpent:    account.TotalSpent,
		LoyaltyPoints: account.LoyaltyPoints,
		FreeUnlocks:   account.FreeUnlocks,
	})
}

func (h *CatalogHandler) Library(c echo.Context) error {
	account, err := middleware.AccountFrom(c)
	if err != nil {
		return err
	}
	entitlements, err := h.entitlementService.ListByAccount(c.Request().Context(), account.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entitlements)
}
