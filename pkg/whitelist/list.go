package whitelist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/matejonnet/dependency-analysis/pkg/db"
	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const listLogPrefix = "whitelist:list"

// List returns a product's whitelist ordered by groupId, artifactId and then version.
func (s *Service) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	slog.Debug(fmt.Sprintf("%s - list product=%d", listLogPrefix, input.ProductID))

	if err := s.requireStore(); err != nil {
		return nil, err
	}
	rows, err := s.store.ListWhitelist(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%s - list whitelist: %w", listLogPrefix, err)
	}

	artifacts := make([]Artifact, 0, len(rows))
	for _, r := range rows {
		artifacts = append(artifacts, Artifact{GroupID: r.GroupID, ArtifactID: r.ArtifactID, Version: r.Version})
	}
	sort.SliceStable(artifacts, func(i, j int) bool {
		a, b := artifacts[i], artifacts[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.ArtifactID != b.ArtifactID {
			return a.ArtifactID < b.ArtifactID
		}
		return semver.Compare(a.Version, b.Version) < 0
	})
	return &ListOutput{Artifacts: artifacts}, nil
}

// GetProductVersion returns one product version. A missing version is a NOT_FOUND error.
func (s *Service) GetProductVersion(ctx context.Context, input *GetProductVersionInput) (*ProductVersion, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	v, err := s.store.GetProductVersion(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("%s - get product version: %w", listLogPrefix, err)
	}
	if v == nil {
		return nil, NewServiceError(CodeNotFound, fmt.Sprintf("product version %d not found", input.ID))
	}
	pv := toProductVersion(*v)
	return &pv, nil
}

// ListProductVersions returns a product's versions in ascending version order, optionally
// restricted to a SemVer range. Versions that are not SemVer never match a range.
func (s *Service) ListProductVersions(ctx context.Context, input *ListProductVersionsInput) (*ListProductVersionsOutput, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if input.Range != "" && !semver.ValidRange(input.Range) {
		return nil, NewServiceError(CodeInvalidArgument, fmt.Sprintf("invalid version range %q", input.Range))
	}

	rows, err := s.store.ListProductVersions(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%s - list product versions: %w", listLogPrefix, err)
	}

	versions := make([]ProductVersion, 0, len(rows))
	for _, r := range rows {
		if input.Range != "" && !semver.SatisfiesRange(r.Version, input.Range) {
			continue
		}
		versions = append(versions, toProductVersion(r))
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return semver.Compare(versions[i].Version, versions[j].Version) < 0
	})
	return &ListProductVersionsOutput{Versions: versions}, nil
}

func toProductVersion(v db.ProductVersion) ProductVersion {
	return ProductVersion{
		ID:                        v.ID,
		Version:                   v.Version,
		ProductID:                 v.ProductID,
		CurrentProductMilestoneID: v.CurrentProductMilestoneID,
	}
}
