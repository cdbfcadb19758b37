package transport

import (
	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/controllers"
	"github.com/udemarket/markethub/lib/service"
)

func RegisterEndpoints(svc *service.MarkethubService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc) {
	if svc.Config.AllowAccountCreation {
		e.POST("/create", controllers.NewCreateUserController(svc).CreateUser, strictRateLimitMiddleware)
	}
	e.POST("/auth", controllers.NewAuthController(svc).Auth, strictRateLimitMiddleware)

	publishCtrl := controllers.NewPublishController(svc)
	securedWithStrictRateLimit.POST("/publish", publishCtrl.Publish)
	securedWithStrictRateLimit.POST("/publish/:attempt_id/resume", publishCtrl.Resume)

	itemsCtrl := controllers.NewItemsController(svc)
	cacheClient := CreateCacheClient()
	secured.GET("/items", itemsCtrl.ListItems, cacheClient.Middleware())
	secured.GET("/items/:id", itemsCtrl.GetItem)
	securedWithStrictRateLimit.POST("/items/:id/purchase", controllers.NewPurchaseController(svc).Purchase)
	securedWithStrictRateLimit.POST("/items/:id/resell", controllers.NewResellController(svc).Resell)

	assetsCtrl := controllers.NewAssetsController(svc)
	secured.GET("/assets/:id", assetsCtrl.GetAsset)
	secured.POST("/assets/:id/authorize", assetsCtrl.Authorize)

	secured.GET("/balance", controllers.NewBalanceController(svc).Balance)

	// the websocket authenticates with a token query param, not the header
	e.GET("/events/ws", controllers.NewEventStreamController(svc).StreamEvents)

	e.GET("/admin/attempts/:attempt_id", controllers.NewAdminController(svc).GetAttempt, adminMw)
}
