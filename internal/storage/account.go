package storage

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// AccountInfo fetches account-level usage counters via a HEAD request
// against the storage root.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	resp, err := c.Do(ctx, http.MethodHead, "/", nil, nil)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("fetching account info: %w", err)
	}

	defer drainBody(resp)

	return &AccountInfo{
		ContainerCount: headerInt64(resp, "X-Account-Container-Count"),
		ObjectCount:    headerInt64(resp, "X-Account-Object-Count"),
		BytesUsed:      headerInt64(resp, "X-Account-Bytes-Used"),
	}, nil
}

// headerInt64 parses a numeric response header, returning 0 when absent
// or malformed.
func headerInt64(resp *http.Response, key string) int64 {
	v, err := strconv.ParseInt(resp.Header.Get(key), 10, 64)
	if err != nil {
		return 0
	}

	return v
}
