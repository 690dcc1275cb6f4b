// Package semver provides Maven coordinate (GAV) parsing and version ordering.
package semver

import (
	"fmt"
	"regexp"
	"strings"
)

const logPrefix = "semver:parser"

// GAV identifies a Maven artifact by group, artifact and version.
type GAV struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

// String renders the coordinate as groupId:artifactId:version.
func (g GAV) String() string {
	return g.GroupID + ":" + g.ArtifactID + ":" + g.Version
}

// GA renders the coordinate without its version.
func (g GAV) GA() string {
	return g.GroupID + ":" + g.ArtifactID
}

var (
	groupIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)
	artifactIDRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)
	versionRegex    = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.+-]*$`)
	propertyRegex   = regexp.MustCompile(`\$\{[^}]+\}`)
)

// ParseGAV parses a groupId:artifactId:version string.
//
// Supported formats:
//   - org.jboss:jboss-parent:19
//   - org.jboss:jboss-parent:jar:19       (packaging is dropped)
//   - org.jboss:jboss-parent:jar:tests:19 (packaging and classifier are dropped)
func ParseGAV(input string) (*GAV, error) {
	raw := strings.TrimSpace(input)
	parts := strings.Split(raw, ":")

	var gav GAV
	switch len(parts) {
	case 3:
		gav = GAV{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	case 4:
		gav = GAV{GroupID: parts[0], ArtifactID: parts[1], Version: parts[3]}
	case 5:
		gav = GAV{GroupID: parts[0], ArtifactID: parts[1], Version: parts[4]}
	default:
		return nil, fmt.Errorf("%s - invalid GAV format, expected groupId:artifactId:version: %s", logPrefix, raw)
	}

	if err := ValidateGAV(gav); err != nil {
		return nil, err
	}
	return &gav, nil
}

// ValidateGAV checks that all three coordinates are present and well formed.
func ValidateGAV(gav GAV) error {
	if !ValidateGroupID(gav.GroupID) {
		return fmt.Errorf("%s - invalid groupId: %q", logPrefix, gav.GroupID)
	}
	if !ValidateArtifactID(gav.ArtifactID) {
		return fmt.Errorf("%s - invalid artifactId: %q", logPrefix, gav.ArtifactID)
	}
	if !ValidateVersion(gav.Version) {
		return fmt.Errorf("%s - invalid version: %q", logPrefix, gav.Version)
	}
	return nil
}

// ValidateGroupID validates a groupId (letters, digits, dots, hyphens, underscores).
func ValidateGroupID(groupID string) bool {
	return groupIDRegex.MatchString(groupID)
}

// ValidateArtifactID validates an artifactId.
func ValidateArtifactID(artifactID string) bool {
	return artifactIDRegex.MatchString(artifactID)
}

// ValidateVersion validates a concrete version. Ranges such as [1.0,2.0) and
// unresolved properties such as ${project.version} are rejected.
func ValidateVersion(version string) bool {
	return versionRegex.MatchString(version)
}

// HasUnresolvedProperty reports whether s still contains a ${...} reference.
func HasUnresolvedProperty(s string) bool {
	return propertyRegex.MatchString(s)
}
