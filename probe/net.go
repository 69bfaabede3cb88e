package probe

import (
	"context"
	"net/http"
	"time"
)

// DefaultProbeURL is fetched to decide whether the machine is online.
const DefaultProbeURL = "https://www.google.com"

// Online reports whether url answers an HTTP request within timeout.
// Any response, whatever its status, counts as online.
func Online(ctx context.Context, client *http.Client, url string, timeout time.Duration) bool {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
