// Package legacy submits crash reports through a relay gateway for
// environments that cannot attach credentials. The relay accepts only bare
// text/plain posts, so the payload travels base64-encoded, without custom
// headers and without cookies.
package legacy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/mayday"
)

type Transport struct {
	gatewayURL string
	client     *http.Client
}

// New returns a transport relaying through gatewayURL. The client is built
// here on purpose: no cookie jar, so nothing credentialed can leak onto the
// relay path.
func New(gatewayURL string) *Transport {
	return &Transport{
		gatewayURL: gatewayURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Transport) Name() string {
	return "legacy"
}

// Post relays the payload to the gateway. The callback context still names
// the original endpoint, not the relay, so failure messages point the user at
// the place the report was meant for. The relay primitive exposes no numeric
// status, so onError never carries one: transport failures pass the error
// text, a rejected relay answer passes nothing at all.
func (t *Transport) Post(ctx context.Context, req mayday.Request, onResponse mayday.ResponseHandler, onError mayday.ErrorHandler) {
	hc := mayday.NewHandlerContext(req.URL)

	encoded := base64.StdEncoding.EncodeToString(req.Payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.gatewayURL, strings.NewReader(encoded))
	if err != nil {
		onError(hc, 0, err.Error())
		return
	}
	httpReq.Header.Set("Content-Type", "text/plain")

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
		onError(hc, 0, "")
		return
	}

	onResponse(hc, string(body))
}
