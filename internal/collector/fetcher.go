package collector

import (
	"context"
	"net/url"
)

// Fetcher performs one raw upstream request. A non-nil error means no
// response was received; any HTTP status is returned as is.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (status int, body []byte, err error)
	Name() string
}
