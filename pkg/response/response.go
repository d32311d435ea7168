package response

// APIResponseCode is the business code carried in every envelope.
type APIResponseCode int

const (
	APIResponseCodeOK         APIResponseCode = 0
	APIResponseCodeBadRequest APIResponseCode = 40000
	APIResponseCodeNotFound   APIResponseCode = 40400
	APIResponseCodeError      APIResponseCode = 50000

	APIResponseCodeUnauthenticated     APIResponseCode = 40100
	APIResponseCodeNoActiveEntitlement APIResponseCode = 40201
	APIResponseCodeLimitReached        APIResponseCode = 40202
	APIResponseCodeExpired             APIResponseCode = 40203
	APIResponseCodeUpstream            APIResponseCode = 50200
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:                  "ok",
	APIResponseCodeBadRequest:          "bad request",
	APIResponseCodeNotFound:            "not found",
	APIResponseCodeError:               "unexpected error",
	APIResponseCodeUnauthenticated:     "authentication required",
	APIResponseCodeNoActiveEntitlement: "no active plan",
	APIResponseCodeLimitReached:        "usage limit reached",
	APIResponseCodeExpired:             "plan expired",
	APIResponseCodeUpstream:            "upstream service unavailable",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// ErrorData tells a client what failed and what it can do next.
type ErrorData struct {
	Kind       string `json:"kind"`
	NextAction string `json:"next_action,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// Message returns the default message of a code.
func Message(code APIResponseCode) string {
	return codeToMsg[code]
}
