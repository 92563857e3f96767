// Package events defines the messages the dashboard pushes to websocket
// clients. Every message is a JSON Message envelope.
package events

// Message types
const (
	// TypeConnection greets a newly registered client
	TypeConnection = "connection"
	// TypeWorkbooksReloaded follows a cache reload; clients should refetch
	TypeWorkbooksReloaded = "workbooks_reloaded"
)

// Message is the envelope of every server-to-client message. Timestamp
// is RFC 3339 in UTC.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Connection is the data of a TypeConnection message
type Connection struct {
	ClientID string `json:"client_id"`
	Clients  int    `json:"clients"`
}
