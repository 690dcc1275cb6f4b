// Package analyser reads Maven projects from source control and extracts the artifacts they
// produce and depend on.
package analyser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const logPrefix = "analyser:analyser"

// maxParentDepth bounds the <parent> chain walked for inheritance.
const maxParentDepth = 8

// CheckoutFunc produces a working tree for an SCM URL at a revision.
type CheckoutFunc func(ctx context.Context, scmURL, revision string) (billy.Filesystem, error)

// Options configure an Analyser.
type Options struct {
	// CloneTimeout bounds Checkout. Zero means no limit beyond the caller's context.
	CloneTimeout time.Duration
	// HTTPClient fetches parent POMs from Maven repositories. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// Checkout defaults to the go-git in-memory Checkout.
	Checkout CheckoutFunc
}

// Analyser extracts GAVs from Maven projects.
type Analyser struct {
	cloneTimeout time.Duration
	client       *http.Client
	checkout     CheckoutFunc
}

// New creates an Analyser.
func New(opts Options) *Analyser {
	a := &Analyser{
		cloneTimeout: opts.CloneTimeout,
		client:       opts.HTTPClient,
		checkout:     opts.Checkout,
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 30 * time.Second}
	}
	if a.checkout == nil {
		a.checkout = Checkout
	}
	return a
}

// PomRequest names a pom.xml inside a source repository.
type PomRequest struct {
	SCMURL   string
	Revision string
	PomPath  string
	// Repositories are Maven repository base URLs searched for parent POMs that are not in the checkout.
	Repositories []string
}

// Result is what a POM contributes to a whitelist.
type Result struct {
	Project      semver.GAV
	Dependencies []semver.GAV
	// Skipped lists dependencies without a concrete version, as groupId:artifactId.
	Skipped []string
}

// GAVs returns the project followed by its dependencies.
func (r *Result) GAVs() []semver.GAV {
	out := make([]semver.GAV, 0, 1+len(r.Dependencies))
	out = append(out, r.Project)
	return append(out, r.Dependencies...)
}

// AnalysePom checks out the repository and analyses the POM at req.PomPath.
func (a *Analyser) AnalysePom(ctx context.Context, req PomRequest) (*Result, error) {
	cloneCtx := ctx
	if a.cloneTimeout > 0 {
		var cancel context.CancelFunc
		cloneCtx, cancel = context.WithTimeout(ctx, a.cloneTimeout)
		defer cancel()
	}

	fs, err := a.checkout(cloneCtx, req.SCMURL, req.Revision)
	if err != nil {
		return nil, err
	}
	return a.AnalyseFS(ctx, fs, req.PomPath, req.Repositories)
}

// AnalyseFS analyses the POM at pomPath inside fs.
func (a *Analyser) AnalyseFS(ctx context.Context, fs billy.Filesystem, pomPath string, repositories []string) (*Result, error) {
	pomPath = cleanPomPath(pomPath)
	data, err := util.ReadFile(fs, pomPath)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, pomPath, err)
	}
	pom, err := ParsePom(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	ancestors := a.loadAncestors(ctx, fs, pomPath, pom, repositories)
	props := newInterpolator(pom, ancestors)

	project := semver.GAV{
		GroupID:    props.expand(pom.EffectiveGroupID()),
		ArtifactID: props.expand(pom.ArtifactID),
		Version:    props.expand(pom.EffectiveVersion()),
	}
	if err := semver.ValidateGAV(project); err != nil {
		return nil, fmt.Errorf("%s - project coordinate of %s: %w", logPrefix, pomPath, err)
	}

	managed := managedVersions(append([]*Pom{pom}, ancestors...), props)
	result := &Result{Project: project}
	seen := map[string]bool{}
	for _, d := range pom.Dependencies {
		gav := semver.GAV{
			GroupID:    props.expand(d.GroupID),
			ArtifactID: props.expand(d.ArtifactID),
			Version:    props.expand(d.Version),
		}
		if gav.Version == "" {
			gav.Version = props.expand(managed[gav.GA()])
		}
		if semver.ValidateGAV(gav) != nil {
			reason := "no concrete version"
			if semver.HasUnresolvedProperty(gav.String()) {
				reason = "unresolved property"
			}
			slog.Debug(fmt.Sprintf("%s - skipping %s: %s", logPrefix, gav.GA(), reason))
			result.Skipped = append(result.Skipped, gav.GA())
			continue
		}
		if seen[gav.String()] {
			continue
		}
		seen[gav.String()] = true
		result.Dependencies = append(result.Dependencies, gav)
	}

	slog.Info(fmt.Sprintf("%s - %s: %d dependencies, %d skipped", logPrefix, project, len(result.Dependencies), len(result.Skipped)))
	return result, nil
}

// loadAncestors walks the parent chain, first in the checkout via relativePath, then in the
// given Maven repositories. A parent that cannot be found ends the chain; the child's own
// <parent> coordinates still provide the inherited groupId and version.
func (a *Analyser) loadAncestors(ctx context.Context, fs billy.Filesystem, pomPath string, pom *Pom, repositories []string) []*Pom {
	var ancestors []*Pom
	current, currentPath := pom, pomPath
	for depth := 0; depth < maxParentDepth && current.Parent != nil; depth++ {
		parent, parentPath := a.findParent(ctx, fs, currentPath, current.Parent, repositories)
		if parent == nil {
			slog.Debug(fmt.Sprintf("%s - parent %s not found", logPrefix, current.Parent.GAV()))
			break
		}
		ancestors = append(ancestors, parent)
		current, currentPath = parent, parentPath
	}
	return ancestors
}

func (a *Analyser) findParent(ctx context.Context, fs billy.Filesystem, childPath string, ref *Parent, repositories []string) (*Pom, string) {
	if childPath != "" {
		rel := "../pom.xml"
		if ref.RelativePath != nil {
			rel = strings.TrimSpace(*ref.RelativePath)
		}
		if rel != "" {
			candidate := path.Join(path.Dir(childPath), rel)
			if !strings.HasSuffix(candidate, ".xml") {
				candidate = path.Join(candidate, "pom.xml")
			}
			candidate = cleanPomPath(candidate)
			if data, err := util.ReadFile(fs, candidate); err == nil {
				if p, err := ParsePom(bytes.NewReader(data)); err == nil && matchesParent(p, ref) {
					return p, candidate
				}
			}
		}
	}

	for _, repo := range repositories {
		p, err := a.fetchPom(ctx, repo, ref.GAV())
		if err != nil {
			slog.Debug(fmt.Sprintf("%s - %v", logPrefix, err))
			continue
		}
		// Repository POMs have no checkout location; their own parents come from repositories too.
		return p, ""
	}
	return nil, ""
}

// fetchPom downloads <repo>/<group path>/<artifact>/<version>/<artifact>-<version>.pom.
func (a *Analyser) fetchPom(ctx context.Context, repo string, gav semver.GAV) (*Pom, error) {
	url := strings.TrimSuffix(repo, "/") + "/" + path.Join(
		strings.ReplaceAll(gav.GroupID, ".", "/"),
		gav.ArtifactID,
		gav.Version,
		gav.ArtifactID+"-"+gav.Version+".pom",
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s - build request for %s: %w", logPrefix, url, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s - fetch %s: %w", logPrefix, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s - fetch %s: status %d", logPrefix, url, resp.StatusCode)
	}
	return ParsePom(resp.Body)
}

func matchesParent(p *Pom, ref *Parent) bool {
	return p.ArtifactID == strings.TrimSpace(ref.ArtifactID) &&
		p.EffectiveGroupID() == strings.TrimSpace(ref.GroupID)
}

// managedVersions merges dependencyManagement over the chain, nearest declaration winning.
// Versions are returned unexpanded; keys are expanded with props.
func managedVersions(chain []*Pom, props interpolator) map[string]string {
	managed := map[string]string{}
	for _, p := range chain {
		for _, d := range p.DependencyManagement {
			ga := props.expand(d.GroupID) + ":" + props.expand(d.ArtifactID)
			if _, ok := managed[ga]; !ok && d.Version != "" {
				managed[ga] = d.Version
			}
		}
	}
	return managed
}

func cleanPomPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(p)), "/")
	if p == "" || p == "." {
		return "pom.xml"
	}
	if !strings.HasSuffix(p, ".xml") {
		return path.Join(p, "pom.xml")
	}
	return p
}
