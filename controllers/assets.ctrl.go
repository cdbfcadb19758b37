package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// AssetsController : AssetsController struct
type AssetsController struct {
	svc *service.MarkethubService
}

func NewAssetsController(svc *service.MarkethubService) *AssetsController {
	return &AssetsController{svc: svc}
}

type AssetResponse struct {
	AssetID       int64               `json:"asset_id"`
	Owner         int64               `json:"owner"`
	DescriptorRef string              `json:"descriptor_ref"`
	Descriptor    *service.Descriptor `json:"descriptor,omitempty"`
}

// GetAsset godoc
// @Summary      Retrieve an asset
// @Description  Current owner, descriptor reference and resolved descriptor
// @Produce      json
// @Tags         Assets
// @Param        id  path      int  true  "Asset ID"
// @Success      200  {object}  AssetResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /assets/{id} [get]
// @Security     OAuth2Password
func (controller *AssetsController) GetAsset(c echo.Context) error {
	ctx := c.Request().Context()

	assetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	owner, err := controller.svc.OwnerOf(ctx, assetID)
	if err != nil {
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}
	descriptorRef, err := controller.svc.DescriptorOf(ctx, assetID)
	if err != nil {
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}

	response := AssetResponse{
		AssetID:       assetID,
		Owner:         owner,
		DescriptorRef: descriptorRef,
	}
	descriptor, err := controller.svc.ResolveDescriptor(ctx, assetID)
	if err != nil {
		c.Logger().Errorf("Failed to resolve descriptor asset_id:%d: %v", assetID, err)
	} else {
		response.Descriptor = descriptor
	}
	return c.JSON(http.StatusOK, &response)
}

// Authorize godoc
// @Summary      Authorize the platform
// @Description  Grant the platform transfer agency over an asset the caller owns. Required before listing and before every resale.
// @Produce      json
// @Tags         Assets
// @Param        id  path      int  true  "Asset ID"
// @Success      200
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /assets/{id}/authorize [post]
// @Security     OAuth2Password
func (controller *AssetsController) Authorize(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	assetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	err = controller.svc.AuthorizePlatform(c.Request().Context(), userID, assetID)
	if err != nil {
		c.Logger().Errorf("Failed to authorize platform asset_id:%d user_id:%d: %v", assetID, userID, err)
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}
	return c.NoContent(http.StatusOK)
}
