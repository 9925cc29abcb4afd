// Package credentialed submits crash reports directly, with session
// credentials attached through the client's cookie jar. It is the first
// choice whenever the environment supports it.
package credentialed

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/user/mayday"
)

type Transport struct {
	client *http.Client
}

// New returns a transport posting through the given client. The client's
// cookie jar is what carries the credentials; the probe only selects this
// transport when one is present.
func New(client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{client: client}
}

func (t *Transport) Name() string {
	return "credentialed"
}

// Post delivers the payload and routes the result into exactly one handler.
// Any 2xx answer goes to onResponse with the raw body; a non-2xx answer goes
// to onError with the numeric status; failures below HTTP go to onError with
// the error text and no status.
func (t *Transport) Post(ctx context.Context, req mayday.Request, onResponse mayday.ResponseHandler, onError mayday.ErrorHandler) {
	hc := mayday.NewHandlerContext(req.URL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Payload))
	if err != nil {
		onError(hc, 0, err.Error())
		return
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("X-Mayday-Client", "mayday")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		onError(hc, 0, err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		onError(hc, 0, err.Error())
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		onError(hc, resp.StatusCode, http.StatusText(resp.StatusCode))
		return
	}

	onResponse(hc, string(body))
}
