package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strings"
	"syscall"

	"caloriebot"
)

var retryableErrnos = []syscall.Errno{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.ETIMEDOUT,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.EPROTO,
}

var retryableText = []string{
	"econnreset",
	"etimedout",
	"econnrefused",
	"enotfound",
	"eai_again",
	"eproto",
	"enetunreach",
	"connection reset",
	"connection refused",
	"network",
	"timeout",
	"too many requests",
	"429",
}

var serverErrorText = regexp.MustCompile(`failed: 5\d\d|status.*5\d\d`)

// httpStatusCoder is implemented by SDK response errors (smithy, genai wrappers).
type httpStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryable reports whether err is a transient network failure, a 429, or a 5xx.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, caloriebot.ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var se *caloriebot.StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.StatusCode)
	}
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		return retryableStatus(sc.HTTPStatusCode())
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		for _, code := range retryableErrnos {
			if errno == code {
				return true
			}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return serverErrorText.MatchString(msg)
}

func retryableStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}
