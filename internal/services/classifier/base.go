package classifier

import (
	"context"
	"fmt"
	"time"

	"SmartLoan/pkg/config"
	xhttp "SmartLoan/pkg/http"
)

// HTTPServiceBase holds the client shared by the remote classifiers.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

func NewHTTPServiceBase(cfg config.ClassifierServiceConfig) *HTTPServiceBase {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: cfg.URL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts payload to path under baseURL and decodes the JSON reply
// into dest. There is no retry: a failed call fails the request.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("classifier service client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

func (b *HTTPServiceBase) Fingerprint() string { return "http:" + b.baseURL }
