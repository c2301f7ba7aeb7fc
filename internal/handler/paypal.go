package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"content-paywall/internal/model"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
)

type PaypalHandler struct {
	orderService service.OrderService
}

func NewPaypalHandler(orderService service.OrderService) *PaypalHandler {
	return &PaypalHandler{orderService: orderService}
}

func (h *PaypalHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.orderService.HandleWebhook(ctx, c.Request().Header, body)
	if err != nil {
		// A reference we never issued is acked so the provider stops
		// redelivering; everything else is retried via non-2xx.
		if errors.Is(err, model.ErrNotFound) {
			log.Printf("webhook for unknown payment reference: %v", err)
			return c.NoContent(http.StatusOK)
		}
		return httpError(err)
	}

	return c.NoContent(http.StatusOK)
}

// HandleSuccess backs the provider return URL. The webhook remains the
// source of truth; this just gives the buyer immediate feedback.
func (h *PaypalHandler) HandleSuccess(c echo.Context) error {
	ctx := c.Request().Context()

	externalRef := c.QueryParam("token")
	if externalRef == "" {
		return c.String(http.StatusBadRequest, "missing order token")
	}

	if err := h.orderService.CaptureAndComplete(ctx, externalRef); err != nil {
		return httpError(err)
	}

	html := `
	<!DOCTYPE html>
	<html>
	<head>
		<meta charset="utf-8">
		<title>Payment Processing</title>
		<style>
			body {
				font-family: Arial, sans-serif;
				text-align: center;
				margin-top: 80px;
			}
		</style>
	</head>
	<body>
		<h2>Payment approved</h2>
		<p>Your unlock is on its way. Check your messages.</p>
	</body>
	</html>
	`
	return c.HTML(http.StatusOK, html)
}
