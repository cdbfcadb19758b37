package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// BalanceController : BalanceController struct
type BalanceController struct {
	svc *service.MarkethubService
}

func NewBalanceController(svc *service.MarkethubService) *BalanceController {
	return &BalanceController{svc: svc}
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// Balance godoc
// @Summary      Retrieve balance
// @Description  Current user's balance in minor units
// @Accept       json
// @Produce      json
// @Tags         Account
// @Success      200  {object}  BalanceResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /balance [get]
// @Security     OAuth2Password
func (controller *BalanceController) Balance(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	balance, err := controller.svc.CurrentUserBalance(c.Request().Context(), userId)
	if err != nil {
		c.Logger().Errorf("Error fetching balance for user_id:%v error: %v", userId, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	return c.JSON(http.StatusOK, &BalanceResponse{
		Balance: balance,
	})
}
