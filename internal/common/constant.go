package common

// AuthorizationHeaderName is the HTTP header used to carry the bearer
// credential on outbound backend requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token value in the authorization header.
const BearerPrefix = "Bearer "
