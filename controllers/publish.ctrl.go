package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// PublishController : PublishController struct
type PublishController struct {
	svc *service.MarkethubService
}

func NewPublishController(svc *service.MarkethubService) *PublishController {
	return &PublishController{svc: svc}
}

type PublishResponseBody struct {
	AttemptID     string `json:"attempt_id"`
	Stage         string `json:"stage"`
	AssetID       int64  `json:"asset_id"`
	ItemID        int64  `json:"item_id"`
	DescriptorRef string `json:"descriptor_ref,omitempty"`
	// DescriptorURL is the gateway URL of the stored descriptor, what
	// catalog browsers resolve to render the asset.
	DescriptorURL string `json:"descriptor_url,omitempty"`
}

func (controller *PublishController) publishResponse(attempt *models.PublishAttempt) *PublishResponseBody {
	response := &PublishResponseBody{
		AttemptID:     attempt.ID,
		Stage:         attempt.Stage,
		AssetID:       attempt.AssetID,
		ItemID:        attempt.ItemID,
		DescriptorRef: attempt.DescriptorRef,
	}
	if attempt.DescriptorRef != "" {
		response.DescriptorURL = controller.svc.ContentStore.GatewayURL(attempt.DescriptorRef)
	}
	return response
}

// Publish godoc
// @Summary      Publish an asset
// @Description  Store the uploaded file and its descriptor, mint an asset, authorize the platform and list it for sale, in one call. On partial failure the response carries the attempt id to resume with.
// @Accept       multipart/form-data
// @Produce      json
// @Tags         Publish
// @Param        file         formData  file    true   "Asset file"
// @Param        name         formData  string  true   "Asset name"
// @Param        description  formData  string  false  "Asset description"
// @Param        price        formData  int     true   "Listing price in minor units"
// @Success      200  {object}  PublishResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.PublishErrorResponse
// @Router       /publish [post]
// @Security     OAuth2Password
func (controller *PublishController) Publish(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	price, err := strconv.ParseInt(c.FormValue("price"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if controller.svc.Config.MaxUploadSize > 0 && fileHeader.Size > controller.svc.Config.MaxUploadSize {
		c.Logger().Errorf("Upload too large user_id:%d size:%d", userID, fileHeader.Size)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	defer file.Close()
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	attempt, err := controller.svc.Publish(c.Request().Context(), service.PublishRequest{
		UserID:      userID,
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       price,
		File:        fileBytes,
	})
	if err != nil {
		return publishErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, controller.publishResponse(attempt))
}

// Resume godoc
// @Summary      Resume a publish attempt
// @Description  Continue a failed publish from its last completed stage. Never repeats a completed stage.
// @Produce      json
// @Tags         Publish
// @Param        attempt_id  path      string  true  "Attempt ID"
// @Success      200  {object}  PublishResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.PublishErrorResponse
// @Router       /publish/{attempt_id}/resume [post]
// @Security     OAuth2Password
func (controller *PublishController) Resume(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	attempt, err := controller.svc.ResumePublish(c.Request().Context(), c.Param("attempt_id"), userID)
	if err != nil {
		return publishErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, controller.publishResponse(attempt))
}

func publishErrorResponse(c echo.Context, err error) error {
	c.Logger().Errorf("Publish failed: %v", err)
	var stageErr *service.StageError
	if errors.As(err, &stageErr) {
		base := responses.FromError(err)
		return c.JSON(base.HttpStatusCode, &responses.PublishErrorResponse{
			ErrorResponse: base,
			AttemptID:     stageErr.Attempt.ID,
			Stage:         stageErr.Stage,
			ContentRef:    stageErr.Attempt.ContentRef,
			DescriptorRef: stageErr.Attempt.DescriptorRef,
			AssetID:       stageErr.Attempt.AssetID,
		})
	}
	response := responses.FromError(err)
	return c.JSON(response.HttpStatusCode, response)
}
