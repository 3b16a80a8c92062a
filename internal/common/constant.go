package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed back on every response.
const RequestIDHeaderName = "X-Request-ID"
