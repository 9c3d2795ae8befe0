package common

// SessionTokenHeaderName is the gRPC metadata key used to carry the
// session token on requests and on the Login response header.
const SessionTokenHeaderName = "session_token"

// RequestIDHeaderName is the gRPC metadata key the server echoes the
// request id under.
const RequestIDHeaderName = "request_id"
