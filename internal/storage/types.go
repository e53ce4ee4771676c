package storage

import "time"

// swiftTimeLayout is the timestamp format in JSON listings.
// Example: "2013-05-27T14:42:04.669760".
const swiftTimeLayout = "2006-01-02T15:04:05.999999"

// AccountInfo is the account-level summary from a HEAD request against
// the storage root, decoded from X-Account-* response headers.
type AccountInfo struct {
	ContainerCount int64
	ObjectCount    int64
	BytesUsed      int64
}

// Container is one entry of an account container listing. Type is the
// Selectel container visibility ("public", "private", or "gallery");
// it is empty on plain Swift deployments.
type Container struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
	Type  string `json:"type,omitempty"`
}

// ContainerInfo is the container-level summary from a HEAD request,
// decoded from X-Container-* response headers.
type ContainerInfo struct {
	ObjectCount int64
	BytesUsed   int64
	Type        string
}

// Object is one entry of a container object listing.
type Object struct {
	Name         string `json:"name"`
	Bytes        int64  `json:"bytes"`
	Hash         string `json:"hash"`
	ContentType  string `json:"content_type"`
	LastModified string `json:"last_modified"`

	// Subdir is set instead of the other fields when listing with a
	// delimiter and the entry is a pseudo-directory.
	Subdir string `json:"subdir,omitempty"`
}

// ModTime parses the listing timestamp. Returns the zero time if the
// entry is a pseudo-directory or the timestamp is malformed.
func (o Object) ModTime() time.Time {
	t, err := time.Parse(swiftTimeLayout, o.LastModified)
	if err != nil {
		return time.Time{}
	}

	return t
}

// ObjectInfo is object metadata from a HEAD request.
type ObjectInfo struct {
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ListOptions narrows an object listing. Zero values mean no constraint.
type ListOptions struct {
	Prefix    string
	Marker    string
	Delimiter string
	Limit     int
}
