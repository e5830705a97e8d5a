package httpapi

import (
	"io"

	"github.com/fwojciec/ragchat"
)

// Exports for white-box testing from the httpapi_test package.

var CompleteLen = completeLen

func NewStream(body io.ReadCloser) ragchat.Stream { return newStream(body) }
