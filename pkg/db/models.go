package db

import "time"

// Product represents a row in the products table.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Created     time.Time `json:"created"`
}

// ProductVersion represents a row in the product_versions table.
type ProductVersion struct {
	ID                        int64     `json:"id"`
	ProductID                 int64     `json:"productId"`
	Version                   string    `json:"version"`
	CurrentProductMilestoneID *int64    `json:"currentProductMilestoneId,omitempty"`
	Created                   time.Time `json:"created"`
}

// WhitelistArtifact represents a row in the whitelist_artifacts table.
type WhitelistArtifact struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"productId"`
	GroupID    string    `json:"groupId"`
	ArtifactID string    `json:"artifactId"`
	Version    string    `json:"version"`
	Created    time.Time `json:"created"`
}
