package domain

// IngestState compose request lifecycle
type IngestState string

const (
	// StateReceived request accepted from a transport
	StateReceived IngestState = "received"
	// StatePersisting validated, writing to the store
	StatePersisting IngestState = "persisting"
	// StatePersisted store assigned the canonical id
	StatePersisted IngestState = "persisted"
	// StatePublished canonical message handed to the broadcast channel
	StatePublished IngestState = "published"
	// StateRejected failed validation
	StateRejected IngestState = "rejected"
	// StateApplied reaction toggle committed
	StateApplied IngestState = "applied"
	// StateDropped reaction toggle discarded
	StateDropped IngestState = "dropped"
)

// Source transport a request arrived on
type Source string

const (
	// SourcePush websocket path
	SourcePush Source = "push"
	// SourceHTTP fallback HTTP path
	SourceHTTP Source = "http"
	// SourceSystem server generated
	SourceSystem Source = "system"
)

// Member directory entry for display name lookup
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
