// Package unsupported is the terminal transport for environments with no way
// to deliver a crash report. It fails every submission synchronously with a
// fixed message and never touches the network.
package unsupported

import (
	"context"

	"github.com/user/mayday"
)

// Message is the fixed user-facing reason for every submission attempt.
const Message = "This client does not support direct crash reporting."

type Transport struct{}

func New() Transport {
	return Transport{}
}

func (Transport) Name() string {
	return "unsupported"
}

// Post reports the fixed failure before returning. No request is made.
func (Transport) Post(_ context.Context, req mayday.Request, _ mayday.ResponseHandler, onError mayday.ErrorHandler) {
	onError(mayday.NewHandlerContext(req.URL), 0, Message)
}
