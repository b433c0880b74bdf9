package repository

import "time"

// ActivityKind names what the user did.
type ActivityKind string

const (
	KindExport ActivityKind = "export"
	KindUpload ActivityKind = "upload"
)

// Activity represents an activity row.
type Activity struct {
	ID        string
	Kind      ActivityKind
	Target    string
	Detail    string
	OK        bool
	Error     string
	CreatedAt time.Time
}
