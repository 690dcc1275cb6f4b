// Package whitelist implements product whitelists: filling them from single coordinates or
// from Maven projects, and listing them together with product versions.
package whitelist

import (
	"context"

	"github.com/matejonnet/dependency-analysis/pkg/analyser"
	"github.com/matejonnet/dependency-analysis/pkg/db"
	"github.com/matejonnet/dependency-analysis/pkg/events"
)

// DefaultRepository is searched for parent POMs when a request names no repositories.
const DefaultRepository = "https://repo1.maven.org/maven2/"

// Store is the persistence the service needs. *db.Repository implements it.
type Store interface {
	Ping(ctx context.Context) error
	ProductExists(ctx context.Context, id int64) (bool, error)
	AddWhitelistArtifact(ctx context.Context, productID int64, groupID, artifactID, version string) (bool, error)
	ListWhitelist(ctx context.Context, productID int64) ([]db.WhitelistArtifact, error)
	GetProductVersion(ctx context.Context, id int64) (*db.ProductVersion, error)
	ListProductVersions(ctx context.Context, productID int64) ([]db.ProductVersion, error)
}

// Analyser extracts coordinates from a Maven project. *analyser.Analyser implements it.
type Analyser interface {
	AnalysePom(ctx context.Context, req analyser.PomRequest) (*analyser.Result, error)
}

// Config holds service configuration.
type Config struct {
	// DefaultRepositories are used for fillFromPom requests without repositories.
	DefaultRepositories []string
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{DefaultRepositories: []string{DefaultRepository}}
}

// Service contains the whitelist business logic.
type Service struct {
	store     Store
	analyser  Analyser
	publisher events.EventPublisher
	config    Config
}

// NewServiceParams holds parameters for NewService.
type NewServiceParams struct {
	Store     Store
	Analyser  Analyser
	Publisher events.EventPublisher
	Config    Config
}

// NewService creates a new Service. A nil Analyser uses the go-git backed analyser and a nil
// Publisher discards events.
func NewService(params NewServiceParams) *Service {
	cfg := params.Config
	if cfg.DefaultRepositories == nil {
		cfg.DefaultRepositories = DefaultConfig().DefaultRepositories
	}

	an := params.Analyser
	if an == nil {
		an = analyser.New(analyser.Options{})
	}

	pub := params.Publisher
	if pub == nil {
		pub = events.NoOpPublisher{}
	}

	return &Service{
		store:     params.Store,
		analyser:  an,
		publisher: pub,
		config:    cfg,
	}
}

// requireStore returns an error if the store is not configured (DATABASE_URL unset).
func (s *Service) requireStore() *ServiceError {
	if s.store == nil {
		return NewServiceError(CodeInternal, "database not configured")
	}
	return nil
}
