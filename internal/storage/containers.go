package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Container visibility types understood by Selectel.
const (
	ContainerPrivate = "private"
	ContainerPublic  = "public"
)

// Containers lists all containers in the account.
func (c *Client) Containers(ctx context.Context) ([]Container, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	defer resp.Body.Close()

	var containers []Container
	if err := json.NewDecoder(resp.Body).Decode(&containers); err != nil {
		return nil, fmt.Errorf("storage: decoding container listing: %w", err)
	}

	return containers, nil
}

// CreateContainer creates a container with the given visibility type.
// containerType defaults to private when empty. Creating an existing
// container is not an error (Swift PUT is idempotent, returns 202).
func (c *Client) CreateContainer(ctx context.Context, name, containerType string) error {
	if containerType == "" {
		containerType = ContainerPrivate
	}

	headers := http.Header{}
	headers.Set("X-Container-Meta-Type", containerType)

	resp, err := c.DoWithHeaders(ctx, http.MethodPut, "/"+name, nil, nil, headers)
	if err != nil {
		return err
	}

	if err := Error(resp); err != nil {
		return fmt.Errorf("creating container %q: %w", name, err)
	}

	drainBody(resp)

	return nil
}

// DeleteContainer removes an empty container. A non-empty container fails
// with ErrConflict.
func (c *Client) DeleteContainer(ctx context.Context, name string) error {
	resp, err := c.Do(ctx, http.MethodDelete, "/"+name, nil, nil)
	if err != nil {
		return err
	}

	if err := Error(resp); err != nil {
		return fmt.Errorf("deleting container %q: %w", name, err)
	}

	drainBody(resp)

	return nil
}

// ContainerInfo fetches container usage counters and visibility type.
func (c *Client) ContainerInfo(ctx context.Context, name string) (*ContainerInfo, error) {
	resp, err := c.Do(ctx, http.MethodHead, "/"+name, nil, nil)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("fetching container %q info: %w", name, err)
	}

	defer drainBody(resp)

	return &ContainerInfo{
		ObjectCount: headerInt64(resp, "X-Container-Object-Count"),
		BytesUsed:   headerInt64(resp, "X-Container-Bytes-Used"),
		Type:        resp.Header.Get("X-Container-Meta-Type"),
	}, nil
}

// drainBody discards and closes a response body so the underlying
// connection can be reused.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
