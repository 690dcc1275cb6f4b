package whitelist

// WLStatus is the outcome of a whitelist fill.
type WLStatus string

const (
	StatusFilled          WLStatus = "FILLED"
	StatusProductNotFound WLStatus = "PRODUCT_NOT_FOUND"
	StatusAnalyserError   WLStatus = "ANALYSER_ERROR"
)

// FillFromGAVInput holds parameters for whitelist.fillFromGAV.
type FillFromGAVInput struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
	ProductID  int64  `json:"productId"`
}

// FillFromPomInput holds parameters for whitelist.fillFromPom.
type FillFromPomInput struct {
	SCMURL   string `json:"scmUrl"`
	Revision string `json:"revision"`
	PomPath  string `json:"pomPath"`
	// Repositories are Maven repository URLs searched for parent POMs.
	Repositories []string `json:"repositories,omitempty"`
	ProductID    int64    `json:"productId"`
}

// FillOutput holds the result of both fill methods.
type FillOutput struct {
	Status WLStatus `json:"status"`
}

// ListInput holds parameters for whitelist.list.
type ListInput struct {
	ProductID int64 `json:"productId"`
}

// ListOutput holds the result of whitelist.list.
type ListOutput struct {
	Artifacts []Artifact `json:"artifacts"`
}

// Artifact is one whitelisted coordinate.
type Artifact struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

// GetProductVersionInput holds parameters for productVersion.get.
type GetProductVersionInput struct {
	ID int64 `json:"id"`
}

// ListProductVersionsInput holds parameters for productVersion.list.
type ListProductVersionsInput struct {
	ProductID int64 `json:"productId"`
	// Range optionally restricts the result to versions matching a SemVer constraint, e.g. "^7.0".
	Range string `json:"range,omitempty"`
}

// ListProductVersionsOutput holds the result of productVersion.list.
type ListProductVersionsOutput struct {
	Versions []ProductVersion `json:"versions"`
}

// ProductVersion is the wire form of a product version.
type ProductVersion struct {
	ID                        int64  `json:"id"`
	Version                   string `json:"version"`
	ProductID                 int64  `json:"productId"`
	CurrentProductMilestoneID *int64 `json:"currentProductMilestoneId,omitempty"`
}

// HealthOutput holds the result of a health check.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// HealthChecks holds individual health check results.
type HealthChecks struct {
	Database bool `json:"database"`
}

// ServiceError is a structured business error.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}

// Error codes.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// NewServiceError creates a new ServiceError.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}
