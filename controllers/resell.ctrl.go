package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// ResellController : ResellController struct
type ResellController struct {
	svc *service.MarkethubService
}

func NewResellController(svc *service.MarkethubService) *ResellController {
	return &ResellController{svc: svc}
}

type ResellRequestBody struct {
	Price int64 `json:"price" validate:"required,gt=0"`
}

type ResellResponseBody struct {
	ItemID int64 `json:"item_id"`
}

// Resell godoc
// @Summary      Resell an item
// @Description  Relist a purchased asset at a new price. The caller must be the current owner and must have re-granted transfer agency to the platform.
// @Accept       json
// @Produce      json
// @Tags         Items
// @Param        id     path      int                true  "Item ID"
// @Param        price  body      ResellRequestBody  true  "New price"
// @Success      200  {object}  ResellResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      403  {object}  responses.ErrorResponse
// @Router       /items/{id}/resell [post]
// @Security     OAuth2Password
func (controller *ResellController) Resell(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body ResellRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load resell request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	newItemID, err := controller.svc.ResellItem(c.Request().Context(), itemID, body.Price, userID)
	if err != nil {
		c.Logger().Errorf("Failed to resell item_id:%d user_id:%d: %v", itemID, userID, err)
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}

	return c.JSON(http.StatusOK, &ResellResponseBody{ItemID: newItemID})
}
