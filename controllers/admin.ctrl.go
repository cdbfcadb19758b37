package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// AdminController : AdminController struct
type AdminController struct {
	svc *service.MarkethubService
}

func NewAdminController(svc *service.MarkethubService) *AdminController {
	return &AdminController{svc: svc}
}

// GetAttempt returns any publish attempt regardless of owner, for support
// and debugging.
func (controller *AdminController) GetAttempt(c echo.Context) error {
	attempt, err := controller.svc.Attempts.Find(c.Request().Context(), c.Param("attempt_id"))
	if err != nil {
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}
	return c.JSON(http.StatusOK, attempt)
}
