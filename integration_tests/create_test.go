package integration_tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/udemarket/markethub/controllers"
	"github.com/udemarket/markethub/lib"
	"github.com/udemarket/markethub/lib/responses"
	"github.com/udemarket/markethub/lib/service"
)

type CreateUserTestSuite struct {
	TestSuite
	service *service.MarkethubService
}

func (suite *CreateUserTestSuite) SetupSuite() {
	svc, err := MarkethubTestServiceInit()
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.service = svc
	e := echo.New()
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = &lib.CustomValidator{Validator: validator.New()}
	suite.echo = e
	suite.echo.POST("/create", controllers.NewCreateUserController(suite.service).CreateUser)
	suite.echo.POST("/auth", controllers.NewAuthController(suite.service).Auth)
}

func (suite *CreateUserTestSuite) TearDownTest() {
	clearTable(suite.service, "accounts")
	clearTable(suite.service, "users")
}

func (suite *CreateUserTestSuite) TestCreateAndAuthUser() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/create", nil)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	createResponse := &ExpectedCreateUserResponseBody{}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(createResponse))
	assert.NotEmpty(suite.T(), createResponse.Login)
	assert.NotEmpty(suite.T(), createResponse.Password)

	rec = httptest.NewRecorder()
	var buf bytes.Buffer
	assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(&ExpectedAuthRequestBody{
		Login:    createResponse.Login,
		Password: createResponse.Password,
	}))
	req = httptest.NewRequest(http.MethodPost, "/auth", &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	authResponse := &ExpectedAuthResponseBody{}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(authResponse))
	assert.NotEmpty(suite.T(), authResponse.AccessToken)
	assert.NotEmpty(suite.T(), authResponse.RefreshToken)

	// the refresh token can be exchanged for a fresh pair
	rec = httptest.NewRecorder()
	buf.Reset()
	assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(&ExpectedAuthRequestBody{
		RefreshToken: authResponse.RefreshToken,
	}))
	req = httptest.NewRequest(http.MethodPost, "/auth", &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *CreateUserTestSuite) TestAuthWithBadCredentials() {
	rec := httptest.NewRecorder()
	var buf bytes.Buffer
	assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(&ExpectedAuthRequestBody{
		Login:    "nope",
		Password: "nope",
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth", &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func TestCreateUserTestSuite(t *testing.T) {
	suite.Run(t, new(CreateUserTestSuite))
}
