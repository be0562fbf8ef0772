// Package contextkey holds the request-scoped values shared by the HTTP middleware and the logger.
package contextkey

type key int

const (
	// TraceID is a string that follows one call across services.
	TraceID key = iota
	// RequestID is a string unique to one inbound request.
	RequestID
	// AccountID is the int64 id of the authenticated caller.
	AccountID
)

func (k key) String() string {
	switch k {
	case TraceID:
		return "trace_id"
	case RequestID:
		return "request_id"
	case AccountID:
		return "account_id"
	}
	return "unknown"
}
