package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// PurchaseController : PurchaseController struct
type PurchaseController struct {
	svc *service.MarkethubService
}

func NewPurchaseController(svc *service.MarkethubService) *PurchaseController {
	return &PurchaseController{svc: svc}
}

type PurchaseRequestBody struct {
	Payment int64 `json:"payment" validate:"required,gt=0"`
}

// Purchase godoc
// @Summary      Purchase an item
// @Description  Settle a listing. Payment must equal the total price exactly. When buyers race, exactly one purchase succeeds.
// @Accept       json
// @Produce      json
// @Tags         Items
// @Param        id       path      int                  true  "Item ID"
// @Param        payment  body      PurchaseRequestBody  true  "Payment"
// @Success      200  {object}  ItemResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /items/{id}/purchase [post]
// @Security     OAuth2Password
func (controller *PurchaseController) Purchase(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body PurchaseRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load purchase request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	item, err := controller.svc.PurchaseItem(c.Request().Context(), itemID, body.Payment, userID)
	if err != nil {
		c.Logger().Errorf("Failed to purchase item_id:%d user_id:%d: %v", itemID, userID, err)
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}

	totalPrice, err := controller.svc.GetTotalPrice(c.Request().Context(), item.ID)
	if err != nil {
		totalPrice = body.Payment
	}
	response := newItemResponse(*item, totalPrice)
	return c.JSON(http.StatusOK, &response)
}
