// Package events defines event types and publisher interfaces for
// catalog change events.
package events

// CatalogChangedEvent is emitted when the entity catalog gains an
// entry, either from a discovery pass or from the learning fallback
// during action parsing.
type CatalogChangedEvent struct {
	Entity    string `json:"entity"`
	Source    string `json:"source"`
	Total     int    `json:"total"`
	Timestamp string `json:"timestamp"`
}
