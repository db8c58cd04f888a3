package probe

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	ReasonTimeout        = "TIMEOUT"
	ReasonNetworkTimeout = "NETWORK_TIMEOUT"
	ReasonNetworkError   = "NETWORK_ERROR"
	ReasonDNSFailure     = "DNS_FAILURE"
	ReasonInvalidRequest = "INVALID_REQUEST"
	ReasonServerError    = "SERVER_ERROR"
	ReasonUnknown        = "UNKNOWN_ERROR"
	ReasonPanic          = "PANIC"
	ReasonTooFewRows     = "TOO_FEW_ROWS"
	ReasonHeapPressure   = "HEAP_PRESSURE"
)

func classifyError(err error) string {

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return "DB_ERROR:" + pgErr.Code
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNSFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonNetworkTimeout
		}
		return ReasonNetworkError
	}

	return ReasonUnknown
}
