package responses

import (
	"errors"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/common"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "not found",
	HttpStatusCode: 404,
}

var NotOwnerError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "caller does not own this asset",
	HttpStatusCode: 403,
}

var NotAuthorizedError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "transfer agency has not been granted. Authorize the platform and try again",
	HttpStatusCode: 403,
}

var AlreadySoldError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "item has already been sold",
	HttpStatusCode: 409,
}

var InsufficientPaymentError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "payment must match the total price exactly (listed price plus platform fee)",
	HttpStatusCode: 400,
}

var TransientError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "a backing service is temporarily unavailable. Safe to retry",
	HttpStatusCode: 503,
}

// PublishErrorResponse tells the caller how far the publish pipeline got,
// so a human or an automatic retry can resume instead of re-running from
// scratch and minting a duplicate asset. Stage names "nothing happened"
// vs. "partially happened" precisely.
type PublishErrorResponse struct {
	ErrorResponse
	AttemptID     string `json:"attempt_id,omitempty"`
	Stage         string `json:"stage,omitempty"`
	ContentRef    string `json:"content_ref,omitempty"`
	DescriptorRef string `json:"descriptor_ref,omitempty"`
	AssetID       int64  `json:"asset_id,omitempty"`
}

// FromError maps the ledger error taxonomy onto HTTP responses. Unknown
// errors map to the general 500.
func FromError(err error) ErrorResponse {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return BadArgumentsError
	case errors.Is(err, common.ErrNotFound):
		return NotFoundError
	case errors.Is(err, common.ErrNotOwner), errors.Is(err, common.ErrOwnershipMismatch):
		return NotOwnerError
	case errors.Is(err, common.ErrNotAuthorized):
		return NotAuthorizedError
	case errors.Is(err, common.ErrAlreadySold):
		return AlreadySoldError
	case errors.Is(err, common.ErrInsufficientPayment):
		return InsufficientPaymentError
	case errors.Is(err, common.ErrTransient):
		return TransientError
	default:
		return GeneralServerError
	}
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
		return
	}
	response := FromError(err)
	c.JSON(response.HttpStatusCode, response)
}
