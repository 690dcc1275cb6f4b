// Package events defines whitelist change events and the publishers that emit them.
package events

// Whitelist sources.
const (
	SourceGAV = "gav"
	SourcePom = "pom"
)

// WhitelistChangedEvent is emitted after artifacts were added to a product's whitelist.
type WhitelistChangedEvent struct {
	ProductID int64  `json:"productId"`
	Source    string `json:"source"`
	// Artifacts are the newly whitelisted groupId:artifactId:version coordinates.
	Artifacts []string `json:"artifacts"`
	SCMURL    string   `json:"scmUrl,omitempty"`
	Revision  string   `json:"revision,omitempty"`
	Timestamp string   `json:"timestamp"`
}
