package integration_tests

import (
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/controllers"
	"github.com/udemarket/markethub/lib"
	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
	"github.com/udemarket/markethub/lib/tokens"
)

type WebsocketTestSuite struct {
	TestSuite
	service    *service.MarkethubService
	aliceToken string
}

func (suite *WebsocketTestSuite) SetupSuite() {
	svc, err := MarkethubTestServiceInit()
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	_, userTokens, err := createUsers(svc, 1)
	if err != nil {
		log.Fatalf("Error creating test users: %v", err)
	}
	suite.service = svc
	suite.aliceToken = userTokens[0]
	e := echo.New()
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = &lib.CustomValidator{Validator: validator.New()}
	suite.echo = e
	suite.echo.GET("/events/ws", controllers.NewEventStreamController(suite.service).StreamEvents)
	publishGroup := suite.echo.Group("", tokens.Middleware(suite.service.Config.JWTSecret))
	publishGroup.POST("/publish", controllers.NewPublishController(suite.service).Publish)
}

func (suite *WebsocketTestSuite) TearDownTest() {
	clearTable(suite.service, "transaction_entries")
	clearTable(suite.service, "items")
	clearTable(suite.service, "asset_authorizations")
	clearTable(suite.service, "publish_attempts")
	clearTable(suite.service, "assets")
}

func (suite *WebsocketTestSuite) TestEventStream() {
	server := httptest.NewServer(suite.echo)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events/ws?token=" + suite.aliceToken
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(suite.T(), err)
	defer ws.Close()

	// first frame is the keepalive
	event := &controllers.ItemEventWrapper{}
	assert.NoError(suite.T(), ws.ReadJSON(event))
	assert.Equal(suite.T(), "keepalive", event.Type)

	received := make(chan controllers.ItemEventWrapper, 4)
	go func() {
		for {
			var ev controllers.ItemEventWrapper
			if err := ws.ReadJSON(&ev); err != nil {
				close(received)
				return
			}
			received <- ev
		}
	}()

	//wait a bit for the subscription to be registered
	time.Sleep(100 * time.Millisecond)
	publishResponse := suite.publishReq("stream me", "", 700, []byte("streamed asset"), suite.aliceToken)

	var got []string
	for len(got) < 2 {
		select {
		case ev, ok := <-received:
			if !ok {
				suite.T().Fatal("websocket closed before events arrived")
			}
			if ev.Type == "keepalive" {
				continue
			}
			got = append(got, ev.Type)
			if ev.Type == common.ItemEventListed && assert.NotNil(suite.T(), ev.Item) {
				assert.Equal(suite.T(), publishResponse.ItemID, ev.Item.ID)
			}
		case <-time.After(5 * time.Second):
			suite.T().Fatal("timed out waiting for websocket events")
		}
	}
	assert.Contains(suite.T(), got, common.AssetEventMinted)
	assert.Contains(suite.T(), got, common.ItemEventListed)
}

func TestWebsocketTestSuite(t *testing.T) {
	suite.Run(t, new(WebsocketTestSuite))
}
