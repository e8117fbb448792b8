package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/affiliate_backend/middleware"
	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/services"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type SalesController struct {
	engine *services.QualificationService
}

func NewSalesController(engine *services.QualificationService) *SalesController {
	return &SalesController{engine: engine}
}

// RecordSale handles POST /api/sales
func (sc *SalesController) RecordSale(c echo.Context) error {
	var req models.RecordSaleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Invalid sale: "+err.Error())
	}
	amount, err := models.NewMoneyFromMajor(req.Amount)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := sc.engine.RecordSale(c.Request().Context(), services.SaleInput{
		ReferralCode:   req.ReferralCode,
		Amount:         amount,
		ProductID:      req.ProductID,
		CustomerID:     req.CustomerID,
		IdempotencyKey: c.Request().Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListSales handles GET /api/sales. Marketers only see their own sales.
func (sc *SalesController) ListSales(c echo.Context) error {
	marketerID := c.QueryParam("marketerId")
	if middleware.ExtractUserType(c) == middleware.UserTypeMarketer {
		marketerID = middleware.GetUserIDFromToken(c)
	}

	sales, err := sc.engine.ListSales(c.Request().Context(), marketerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Sales retrieved successfully",
		Data:    sales,
	})
}
