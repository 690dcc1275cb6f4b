// Package bootstrap loads seed files describing products, their versions and initial whitelists.
package bootstrap

// SeedProductVersion is a product version entry in a seed file.
type SeedProductVersion struct {
	Version                   string `json:"version"`
	CurrentProductMilestoneID *int64 `json:"currentProductMilestoneId,omitempty"`
}

// SeedProduct is a product entry in a seed file.
type SeedProduct struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Versions    []SeedProductVersion `json:"versions,omitempty"`
	// Whitelist holds groupId:artifactId:version coordinates.
	Whitelist []string `json:"whitelist,omitempty"`
}

// SeedConfig is the root of a seed file.
type SeedConfig struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Description string        `json:"description,omitempty"`
	Products    []SeedProduct `json:"products"`
}

// Product returns the product with the given name, or nil.
func (c *SeedConfig) Product(name string) *SeedProduct {
	for i := range c.Products {
		if c.Products[i].Name == name {
			return &c.Products[i]
		}
	}
	return nil
}

// Counts returns the number of products, product versions and whitelist entries.
func (c *SeedConfig) Counts() (products, versions, artifacts int) {
	for _, p := range c.Products {
		versions += len(p.Versions)
		artifacts += len(p.Whitelist)
	}
	return len(c.Products), versions, artifacts
}
