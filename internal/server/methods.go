package server

import (
	"context"

	"github.com/matejonnet/dependency-analysis/pkg/methods"
	"github.com/matejonnet/dependency-analysis/pkg/whitelist"
)

// PingParams is the empty parameter object of ping.
type PingParams struct{}

// BuildRegistry registers every JSON-RPC method the server exposes.
func BuildRegistry(svc *whitelist.Service) (*methods.Registry, error) {
	ping, err := methods.New("ping", func(context.Context, PingParams) (string, error) {
		return "pong", nil
	}, methods.WithDescription("Liveness check; returns \"pong\"."))
	if err != nil {
		return nil, err
	}

	fillGAV, err := methods.New("whitelist.fillFromGAV",
		func(ctx context.Context, in whitelist.FillFromGAVInput) (*whitelist.FillOutput, error) {
			return svc.FillFromGAV(ctx, &in)
		}, methods.WithDescription("Whitelist one artifact for a product."))
	if err != nil {
		return nil, err
	}

	fillPom, err := methods.New("whitelist.fillFromPom",
		func(ctx context.Context, in whitelist.FillFromPomInput) (*whitelist.FillOutput, error) {
			return svc.FillFromPom(ctx, &in)
		}, methods.WithDescription("Whitelist a Maven project and its dependencies for a product."))
	if err != nil {
		return nil, err
	}

	list, err := methods.New("whitelist.list",
		func(ctx context.Context, in whitelist.ListInput) (*whitelist.ListOutput, error) {
			return svc.List(ctx, &in)
		}, methods.WithDescription("List the whitelisted artifacts of a product."))
	if err != nil {
		return nil, err
	}

	pvGet, err := methods.New("productVersion.get",
		func(ctx context.Context, in whitelist.GetProductVersionInput) (*whitelist.ProductVersion, error) {
			return svc.GetProductVersion(ctx, &in)
		}, methods.WithDescription("Get a product version by id."))
	if err != nil {
		return nil, err
	}

	pvList, err := methods.New("productVersion.list",
		func(ctx context.Context, in whitelist.ListProductVersionsInput) (*whitelist.ListProductVersionsOutput, error) {
			return svc.ListProductVersions(ctx, &in)
		}, methods.WithDescription("List the versions of a product, optionally restricted to a range."))
	if err != nil {
		return nil, err
	}

	return methods.NewRegistry(ping, fillGAV, fillPom, list, pvGet, pvList)
}
