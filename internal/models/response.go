package models

import "github.com/gofiber/fiber/v2"

// Envelope codes.
const (
	EnvelopeSuccess = "1"
	EnvelopeFailure = "0"
	EnvelopeSystem  = "-1"
)

// Response is the uniform JSON envelope returned by every endpoint.
type Response struct {
	Code         string `json:"code"`
	Msg          string `json:"msg"`
	Data         any    `json:"data"`
	ErrorType    string `json:"errorType,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RespondOK writes a success envelope.
func RespondOK(c *fiber.Ctx, msg string, data any) error {
	return c.JSON(Response{Code: EnvelopeSuccess, Msg: msg, Data: data})
}

// RespondWithTokens writes a success envelope carrying a token pair at the top level.
func RespondWithTokens(c *fiber.Ctx, msg string, data any, tokens TokenPair) error {
	return c.JSON(Response{
		Code:         EnvelopeSuccess,
		Msg:          msg,
		Data:         data,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// RespondWithError writes a failure envelope for err.
func RespondWithError(c *fiber.Ctx, err error) error {
	appErr := AsAppError(err)

	code := EnvelopeFailure
	if appErr.Internal() {
		code = EnvelopeSystem
	}

	return c.Status(appErr.Status()).JSON(Response{
		Code:      code,
		Msg:       appErr.Message,
		Data:      nil,
		ErrorType: appErr.Code,
	})
}
