package http

const (
	CodeUnknown          = "UNKNOWN"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInvalidForm      = "INVALID_FORM"
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeCSRFMissing      = "CSRF_MISSING"
	CodeCSRFInvalid      = "CSRF_INVALID"
)
