package analyser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const pomLogPrefix = "analyser:pom"

// Pom is the subset of a Maven project model the analyser needs.
type Pom struct {
	XMLName              xml.Name     `xml:"project"`
	GroupID              string       `xml:"groupId"`
	ArtifactID           string       `xml:"artifactId"`
	Version              string       `xml:"version"`
	Packaging            string       `xml:"packaging"`
	Parent               *Parent      `xml:"parent"`
	Properties           Properties   `xml:"properties"`
	Modules              []string     `xml:"modules>module"`
	Dependencies         []Dependency `xml:"dependencies>dependency"`
	DependencyManagement []Dependency `xml:"dependencyManagement>dependencies>dependency"`
}

// Parent is the <parent> element.
type Parent struct {
	GroupID      string  `xml:"groupId"`
	ArtifactID   string  `xml:"artifactId"`
	Version      string  `xml:"version"`
	RelativePath *string `xml:"relativePath"`
}

// GAV returns the parent coordinate.
func (p *Parent) GAV() semver.GAV {
	return semver.GAV{GroupID: p.GroupID, ArtifactID: p.ArtifactID, Version: p.Version}
}

// Dependency is a <dependency> element.
type Dependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Type       string `xml:"type"`
	Classifier string `xml:"classifier"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

// Properties holds the <properties> element as a flat name → value map.
type Properties map[string]string

// UnmarshalXML implements xml.Unmarshaler.
func (p *Properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	props := Properties{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			props[t.Name.Local] = strings.TrimSpace(v)
		case xml.EndElement:
			*p = props
			return nil
		}
	}
}

// ParsePom decodes a pom.xml document.
func ParsePom(r io.Reader) (*Pom, error) {
	var pom Pom
	if err := xml.NewDecoder(r).Decode(&pom); err != nil {
		return nil, fmt.Errorf("%s - failed to parse pom: %w", pomLogPrefix, err)
	}
	pom.GroupID = strings.TrimSpace(pom.GroupID)
	pom.ArtifactID = strings.TrimSpace(pom.ArtifactID)
	pom.Version = strings.TrimSpace(pom.Version)
	if pom.ArtifactID == "" {
		return nil, fmt.Errorf("%s - pom has no artifactId", pomLogPrefix)
	}
	return &pom, nil
}

// EffectiveGroupID returns the groupId, inherited from the parent when absent.
func (p *Pom) EffectiveGroupID() string {
	if p.GroupID == "" && p.Parent != nil {
		return strings.TrimSpace(p.Parent.GroupID)
	}
	return p.GroupID
}

// EffectiveVersion returns the version, inherited from the parent when absent.
func (p *Pom) EffectiveVersion() string {
	if p.Version == "" && p.Parent != nil {
		return strings.TrimSpace(p.Parent.Version)
	}
	return p.Version
}

// maxInterpolationDepth bounds nested ${...} expansion.
const maxInterpolationDepth = 10

// interpolator expands ${...} references against a property set.
type interpolator map[string]string

// newInterpolator builds the property set of pom on top of its ancestors'.
// ancestors are ordered from the nearest parent outwards.
func newInterpolator(pom *Pom, ancestors []*Pom) interpolator {
	props := interpolator{}
	for i := len(ancestors) - 1; i >= 0; i-- {
		for k, v := range ancestors[i].Properties {
			props[k] = v
		}
	}
	for k, v := range pom.Properties {
		props[k] = v
	}

	groupID, version := pom.EffectiveGroupID(), pom.EffectiveVersion()
	for _, prefix := range []string{"project.", "pom.", ""} {
		props[prefix+"groupId"] = groupID
		props[prefix+"artifactId"] = pom.ArtifactID
		props[prefix+"version"] = version
	}
	if pom.Parent != nil {
		props["project.parent.groupId"] = strings.TrimSpace(pom.Parent.GroupID)
		props["project.parent.artifactId"] = strings.TrimSpace(pom.Parent.ArtifactID)
		props["project.parent.version"] = strings.TrimSpace(pom.Parent.Version)
	}
	return props
}

// expand replaces known ${name} references. Unknown references are left in place.
func (in interpolator) expand(s string) string {
	s = strings.TrimSpace(s)
	for depth := 0; depth < maxInterpolationDepth && strings.Contains(s, "${"); depth++ {
		var sb strings.Builder
		rest := s
		changed := false
		for {
			start := strings.Index(rest, "${")
			if start < 0 {
				sb.WriteString(rest)
				break
			}
			end := strings.Index(rest[start:], "}")
			if end < 0 {
				sb.WriteString(rest)
				break
			}
			end += start
			name := rest[start+2 : end]
			sb.WriteString(rest[:start])
			if v, ok := in[name]; ok {
				sb.WriteString(v)
				changed = true
			} else {
				sb.WriteString(rest[start : end+1])
			}
			rest = rest[end+1:]
		}
		s = sb.String()
		if !changed {
			break
		}
	}
	return s
}
