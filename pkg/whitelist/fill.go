package whitelist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matejonnet/dependency-analysis/pkg/analyser"
	"github.com/matejonnet/dependency-analysis/pkg/events"
	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const fillLogPrefix = "whitelist:fill"

// FillFromGAV whitelists a single coordinate for a product.
func (s *Service) FillFromGAV(ctx context.Context, input *FillFromGAVInput) (*FillOutput, error) {
	gav := semver.GAV{GroupID: input.GroupID, ArtifactID: input.ArtifactID, Version: input.Version}
	slog.Info(fmt.Sprintf("%s - fillFromGAV %s product=%d", fillLogPrefix, gav, input.ProductID))

	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := semver.ValidateGAV(gav); err != nil {
		return nil, NewServiceError(CodeInvalidArgument, err.Error())
	}

	found, err := s.productExists(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &FillOutput{Status: StatusProductNotFound}, nil
	}

	added, err := s.addAll(ctx, input.ProductID, []semver.GAV{gav})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &events.WhitelistChangedEvent{
		ProductID: input.ProductID,
		Source:    events.SourceGAV,
		Artifacts: added,
	})
	return &FillOutput{Status: StatusFilled}, nil
}

// FillFromPom checks out a Maven project and whitelists its coordinate together with every
// declared dependency that has a concrete version. Checkout and parse failures are reported
// as ANALYSER_ERROR.
func (s *Service) FillFromPom(ctx context.Context, input *FillFromPomInput) (*FillOutput, error) {
	slog.Info(fmt.Sprintf("%s - fillFromPom %s@%s %s product=%d", fillLogPrefix, input.SCMURL, input.Revision, input.PomPath, input.ProductID))

	if err := s.requireStore(); err != nil {
		return nil, err
	}
	found, err := s.productExists(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &FillOutput{Status: StatusProductNotFound}, nil
	}

	repos := input.Repositories
	if len(repos) == 0 {
		repos = s.config.DefaultRepositories
	}
	result, err := s.analyser.AnalysePom(ctx, analyser.PomRequest{
		SCMURL:       input.SCMURL,
		Revision:     input.Revision,
		PomPath:      input.PomPath,
		Repositories: repos,
	})
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - analysis of %s failed: %v", fillLogPrefix, input.SCMURL, err))
		return &FillOutput{Status: StatusAnalyserError}, nil
	}

	added, err := s.addAll(ctx, input.ProductID, result.GAVs())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &events.WhitelistChangedEvent{
		ProductID: input.ProductID,
		Source:    events.SourcePom,
		Artifacts: added,
		SCMURL:    input.SCMURL,
		Revision:  input.Revision,
	})
	return &FillOutput{Status: StatusFilled}, nil
}

func (s *Service) productExists(ctx context.Context, productID int64) (bool, error) {
	found, err := s.store.ProductExists(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("%s - product lookup: %w", fillLogPrefix, err)
	}
	if !found {
		slog.Info(fmt.Sprintf("%s - product %d not found", fillLogPrefix, productID))
	}
	return found, nil
}

// addAll stores gavs and returns the ones that were not whitelisted before.
func (s *Service) addAll(ctx context.Context, productID int64, gavs []semver.GAV) ([]string, error) {
	var added []string
	for _, gav := range gavs {
		inserted, err := s.store.AddWhitelistArtifact(ctx, productID, gav.GroupID, gav.ArtifactID, gav.Version)
		if err != nil {
			return nil, fmt.Errorf("%s - whitelist %s: %w", fillLogPrefix, gav, err)
		}
		if inserted {
			added = append(added, gav.String())
		}
	}
	slog.Info(fmt.Sprintf("%s - product %d: %d of %d artifacts newly whitelisted", fillLogPrefix, productID, len(added), len(gavs)))
	return added, nil
}

// publish sends a change event when something was added. Failures are logged only.
func (s *Service) publish(ctx context.Context, event *events.WhitelistChangedEvent) {
	if len(event.Artifacts) == 0 {
		return
	}
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if err := s.publisher.PublishWhitelistChanged(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - change event for product %d not published: %v", fillLogPrefix, event.ProductID, err))
	}
}
