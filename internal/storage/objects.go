package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Objects lists objects in a container, narrowed by opts.
func (c *Client) Objects(ctx context.Context, container string, opts ListOptions) ([]Object, error) {
	query := url.Values{}

	if opts.Prefix != "" {
		query.Set("prefix", opts.Prefix)
	}

	if opts.Marker != "" {
		query.Set("marker", opts.Marker)
	}

	if opts.Delimiter != "" {
		query.Set("delimiter", opts.Delimiter)
	}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	resp, err := c.Do(ctx, http.MethodGet, "/"+container, query, nil)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("listing objects in %q: %w", container, err)
	}

	defer resp.Body.Close()

	var objects []Object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("storage: decoding object listing: %w", err)
	}

	return objects, nil
}

// Upload stores an object from r. contentType may be empty, letting the
// service sniff it from the object name.
func (c *Client) Upload(ctx context.Context, container, name string, r io.Reader, contentType string) error {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	resp, err := c.DoWithHeaders(ctx, http.MethodPut, "/"+container+"/"+name, nil, r, headers)
	if err != nil {
		return err
	}

	if err := Error(resp); err != nil {
		return fmt.Errorf("uploading %s/%s: %w", container, name, err)
	}

	drainBody(resp)

	return nil
}

// Download fetches an object. The caller must close the returned reader.
func (c *Client) Download(ctx context.Context, container, name string) (io.ReadCloser, *ObjectInfo, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/"+container+"/"+name, nil, nil)
	if err != nil {
		return nil, nil, err
	}

	if err := Error(resp); err != nil {
		return nil, nil, fmt.Errorf("downloading %s/%s: %w", container, name, err)
	}

	return resp.Body, objectInfoFromResponse(resp), nil
}

// DeleteObject removes a single object.
func (c *Client) DeleteObject(ctx context.Context, container, name string) error {
	resp, err := c.Do(ctx, http.MethodDelete, "/"+container+"/"+name, nil, nil)
	if err != nil {
		return err
	}

	if err := Error(resp); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", container, name, err)
	}

	drainBody(resp)

	return nil
}

// StatObject fetches object metadata without the body.
func (c *Client) StatObject(ctx context.Context, container, name string) (*ObjectInfo, error) {
	resp, err := c.Do(ctx, http.MethodHead, "/"+container+"/"+name, nil, nil)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("stat %s/%s: %w", container, name, err)
	}

	defer drainBody(resp)

	return objectInfoFromResponse(resp), nil
}

// Copy performs a server-side object copy via X-Copy-From. Destination
// and source are "container/object" paths.
func (c *Client) Copy(ctx context.Context, srcContainer, srcName, dstContainer, dstName string) error {
	headers := http.Header{}
	headers.Set("X-Copy-From", "/"+srcContainer+"/"+srcName)
	headers.Set("Content-Length", "0")

	resp, err := c.DoWithHeaders(ctx, http.MethodPut, "/"+dstContainer+"/"+dstName, nil, nil, headers)
	if err != nil {
		return err
	}

	if err := Error(resp); err != nil {
		return fmt.Errorf("copying %s/%s to %s/%s: %w", srcContainer, srcName, dstContainer, dstName, err)
	}

	drainBody(resp)

	return nil
}

// objectInfoFromResponse decodes object metadata from response headers.
func objectInfoFromResponse(resp *http.Response) *ObjectInfo {
	info := &ObjectInfo{
		Size:        resp.ContentLength,
		ETag:        resp.Header.Get("Etag"),
		ContentType: resp.Header.Get("Content-Type"),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := time.Parse(http.TimeFormat, lm); err == nil {
			info.LastModified = t
		}
	}

	return info
}
