package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/ledger"
	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

// ItemsController : ItemsController struct
type ItemsController struct {
	svc *service.MarkethubService
}

func NewItemsController(svc *service.MarkethubService) *ItemsController {
	return &ItemsController{svc: svc}
}

type ItemResponse struct {
	ID         int64  `json:"id"`
	AssetID    int64  `json:"asset_id"`
	Price      int64  `json:"price"`
	TotalPrice int64  `json:"total_price"`
	Seller     int64  `json:"seller"`
	Creator    int64  `json:"creator"`
	Sold       bool   `json:"sold"`
	CreatedAt  int64  `json:"created_at"`
	SoldAt     *int64 `json:"sold_at,omitempty"`
}

type ItemDetailResponse struct {
	ItemResponse
	Descriptor *service.Descriptor `json:"descriptor,omitempty"`
}

func newItemResponse(item models.Item, totalPrice int64) ItemResponse {
	response := ItemResponse{
		ID:         item.ID,
		AssetID:    item.AssetID,
		Price:      item.Price,
		TotalPrice: totalPrice,
		Seller:     item.Seller,
		Creator:    item.Creator,
		Sold:       item.Sold,
		CreatedAt:  item.CreatedAt.Unix(),
	}
	if !item.SoldAt.IsZero() {
		soldAt := item.SoldAt.Time.Unix()
		response.SoldAt = &soldAt
	}
	return response
}

// ListItems godoc
// @Summary      List items
// @Description  All marketplace listings, filterable by seller, creator, asset and sold state
// @Produce      json
// @Tags         Items
// @Param        seller    query     int     false  "Filter by seller"
// @Param        creator   query     int     false  "Filter by creator"
// @Param        asset_id  query     int     false  "Filter by asset"
// @Param        sold      query     bool    false  "Filter by sold state"
// @Param        mine      query     bool    false  "Only the caller's listings"
// @Success      200  {array}  ItemResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /items [get]
// @Security     OAuth2Password
func (controller *ItemsController) ListItems(c echo.Context) error {
	ctx := c.Request().Context()

	var filter ledger.ItemFilter
	if v := c.QueryParam("seller"); v != "" {
		seller, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		filter.Seller = seller
	}
	if v := c.QueryParam("creator"); v != "" {
		creator, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		filter.Creator = creator
	}
	if v := c.QueryParam("asset_id"); v != "" {
		assetID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		filter.AssetID = assetID
	}
	if v := c.QueryParam("sold"); v != "" {
		sold, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
		}
		filter.Sold = &sold
	}
	if v := c.QueryParam("mine"); v == "true" {
		filter.Seller = c.Get("UserID").(int64)
	}

	items, err := controller.svc.ListItems(ctx, filter)
	if err != nil {
		c.Logger().Errorf("Failed to list items: %v", err)
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		totalPrice, err := controller.svc.GetTotalPrice(ctx, item.ID)
		if err != nil {
			c.Logger().Errorf("Failed to price item item_id:%d: %v", item.ID, err)
			continue
		}
		response = append(response, newItemResponse(item, totalPrice))
	}
	return c.JSON(http.StatusOK, response)
}

// GetItem godoc
// @Summary      Retrieve an item
// @Description  One listing with its total price and resolved descriptor
// @Produce      json
// @Tags         Items
// @Param        id  path      int  true  "Item ID"
// @Success      200  {object}  ItemDetailResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /items/{id} [get]
// @Security     OAuth2Password
func (controller *ItemsController) GetItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	item, err := controller.svc.GetItem(ctx, itemID)
	if err != nil {
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}
	totalPrice, err := controller.svc.GetTotalPrice(ctx, itemID)
	if err != nil {
		response := responses.FromError(err)
		return c.JSON(response.HttpStatusCode, response)
	}

	detail := ItemDetailResponse{ItemResponse: newItemResponse(*item, totalPrice)}
	// descriptor resolution is best effort, the listing itself is the record
	descriptor, err := controller.svc.ResolveDescriptor(ctx, item.AssetID)
	if err != nil {
		c.Logger().Errorf("Failed to resolve descriptor asset_id:%d: %v", item.AssetID, err)
	} else {
		detail.Descriptor = descriptor
	}
	return c.JSON(http.StatusOK, &detail)
}
