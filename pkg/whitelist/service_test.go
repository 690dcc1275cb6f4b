package whitelist

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/matejonnet/dependency-analysis/pkg/analyser"
	"github.com/matejonnet/dependency-analysis/pkg/db"
	"github.com/matejonnet/dependency-analysis/pkg/events"
	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

func recordingPublisher(into *[]*events.WhitelistChangedEvent) events.EventPublisher {
	return events.PublisherFunc(func(_ context.Context, e *events.WhitelistChangedEvent) error {
		*into = append(*into, e)
		return nil
	})
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(NewServiceParams{})

	if !reflect.DeepEqual(svc.config.DefaultRepositories, []string{DefaultRepository}) {
		t.Errorf("whitelist:service_test - DefaultRepositories = %v", svc.config.DefaultRepositories)
	}
	if svc.analyser == nil || svc.publisher == nil {
		t.Error("whitelist:service_test - expected default analyser and publisher")
	}
}

func TestFillFromGAV(t *testing.T) {
	var published []*events.WhitelistChangedEvent
	store := newFakeStore(1)
	svc := NewService(NewServiceParams{Store: store, Publisher: recordingPublisher(&published)})
	ctx := context.Background()

	tests := []struct {
		name       string
		input      FillFromGAVInput
		wantStatus WLStatus
		wantEvents int
	}{
		{"filled", FillFromGAVInput{GroupID: "junit", ArtifactID: "junit", Version: "4.12", ProductID: 1}, StatusFilled, 1},
		{"already whitelisted", FillFromGAVInput{GroupID: "junit", ArtifactID: "junit", Version: "4.12", ProductID: 1}, StatusFilled, 1},
		{"unknown product", FillFromGAVInput{GroupID: "junit", ArtifactID: "junit", Version: "4.12", ProductID: 99}, StatusProductNotFound, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.FillFromGAV(ctx, &tt.input)
			if err != nil {
				t.Fatalf("whitelist:service_test - unexpected error: %v", err)
			}
			if out.Status != tt.wantStatus {
				t.Errorf("whitelist:service_test - status = %s, want %s", out.Status, tt.wantStatus)
			}
			if len(published) != tt.wantEvents {
				t.Errorf("whitelist:service_test - %d events published, want %d", len(published), tt.wantEvents)
			}
		})
	}

	if published[0].Source != events.SourceGAV || published[0].Artifacts[0] != "junit:junit:4.12" || published[0].Timestamp == "" {
		t.Errorf("whitelist:service_test - unexpected event %+v", published[0])
	}
}

func TestFillFromGAV_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(NewServiceParams{}).FillFromGAV(ctx, &FillFromGAVInput{GroupID: "g", ArtifactID: "a", Version: "1", ProductID: 1})
	var se *ServiceError
	if !errors.As(err, &se) || se.Code != CodeInternal {
		t.Errorf("whitelist:service_test - expected INTERNAL_ERROR without store, got %v", err)
	}

	svc := NewService(NewServiceParams{Store: newFakeStore(1)})
	_, err = svc.FillFromGAV(ctx, &FillFromGAVInput{GroupID: "g", ArtifactID: "a", Version: "${v}", ProductID: 1})
	if !errors.As(err, &se) || se.Code != CodeInvalidArgument {
		t.Errorf("whitelist:service_test - expected INVALID_ARGUMENT, got %v", err)
	}

	failing := newFakeStore(1)
	failing.failWith = errStore
	_, err = NewService(NewServiceParams{Store: failing}).FillFromGAV(ctx, &FillFromGAVInput{GroupID: "g", ArtifactID: "a", Version: "1", ProductID: 1})
	if !errors.Is(err, errStore) {
		t.Errorf("whitelist:service_test - expected store error, got %v", err)
	}
}

func TestFillFromPom(t *testing.T) {
	var published []*events.WhitelistChangedEvent
	store := newFakeStore(3)
	an := &fakeAnalyser{result: &analyser.Result{
		Project: semver.GAV{GroupID: "org.jboss.da", ArtifactID: "reports-backend", Version: "1.2.0"},
		Dependencies: []semver.GAV{
			{GroupID: "junit", ArtifactID: "junit", Version: "4.12"},
		},
	}}
	svc := NewService(NewServiceParams{Store: store, Analyser: an, Publisher: recordingPublisher(&published)})

	out, err := svc.FillFromPom(context.Background(), &FillFromPomInput{
		SCMURL:    "https://example.com/da.git",
		Revision:  "v1.2.0",
		PomPath:   "reports-backend/pom.xml",
		ProductID: 3,
	})
	if err != nil {
		t.Fatalf("whitelist:service_test - unexpected error: %v", err)
	}
	if out.Status != StatusFilled {
		t.Errorf("whitelist:service_test - status = %s, want FILLED", out.Status)
	}
	if an.got.PomPath != "reports-backend/pom.xml" || !reflect.DeepEqual(an.got.Repositories, []string{DefaultRepository}) {
		t.Errorf("whitelist:service_test - unexpected analyser request %+v", an.got)
	}
	if got := len(store.whitelist[3]); got != 2 {
		t.Errorf("whitelist:service_test - expected 2 whitelisted artifacts, got %d", got)
	}
	if len(published) != 1 || published[0].Source != events.SourcePom || published[0].Revision != "v1.2.0" {
		t.Errorf("whitelist:service_test - unexpected events %+v", published)
	}
}

func TestFillFromPom_Statuses(t *testing.T) {
	ctx := context.Background()

	an := &fakeAnalyser{err: errors.New("clone failed")}
	svc := NewService(NewServiceParams{Store: newFakeStore(1), Analyser: an})

	out, err := svc.FillFromPom(ctx, &FillFromPomInput{SCMURL: "x", ProductID: 1, Repositories: []string{"https://repo.example.com/"}})
	if err != nil {
		t.Fatalf("whitelist:service_test - unexpected error: %v", err)
	}
	if out.Status != StatusAnalyserError {
		t.Errorf("whitelist:service_test - status = %s, want ANALYSER_ERROR", out.Status)
	}
	if an.got.Repositories[0] != "https://repo.example.com/" {
		t.Errorf("whitelist:service_test - request repositories not passed through: %v", an.got.Repositories)
	}

	out, err = svc.FillFromPom(ctx, &FillFromPomInput{SCMURL: "x", ProductID: 2})
	if err != nil {
		t.Fatalf("whitelist:service_test - unexpected error: %v", err)
	}
	if out.Status != StatusProductNotFound {
		t.Errorf("whitelist:service_test - status = %s, want PRODUCT_NOT_FOUND", out.Status)
	}
	if an.calls != 1 {
		t.Errorf("whitelist:service_test - analyser must not run for unknown products, calls = %d", an.calls)
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	pub := events.PublisherFunc(func(context.Context, *events.WhitelistChangedEvent) error {
		return errors.New("comms down")
	})
	svc := NewService(NewServiceParams{Store: newFakeStore(1), Publisher: pub})

	out, err := svc.FillFromGAV(context.Background(), &FillFromGAVInput{GroupID: "g", ArtifactID: "a", Version: "1", ProductID: 1})
	if err != nil || out.Status != StatusFilled {
		t.Errorf("whitelist:service_test - got %+v, %v", out, err)
	}
}

func TestList(t *testing.T) {
	store := newFakeStore(1)
	ctx := context.Background()
	for _, gav := range []string{"org.b:lib:1.10", "org.a:lib:2.0", "org.b:lib:1.9", "org.b:api:1.0"} {
		g, _ := semver.ParseGAV(gav)
		_, _ = store.AddWhitelistArtifact(ctx, 1, g.GroupID, g.ArtifactID, g.Version)
	}
	svc := NewService(NewServiceParams{Store: store})

	out, err := svc.List(ctx, &ListInput{ProductID: 1})
	if err != nil {
		t.Fatalf("whitelist:service_test - unexpected error: %v", err)
	}
	var got []string
	for _, a := range out.Artifacts {
		got = append(got, a.GroupID+":"+a.ArtifactID+":"+a.Version)
	}
	want := []string{"org.a:lib:2.0", "org.b:api:1.0", "org.b:lib:1.9", "org.b:lib:1.10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("whitelist:service_test - List() = %v, want %v", got, want)
	}

	empty, err := svc.List(ctx, &ListInput{ProductID: 2})
	if err != nil || empty.Artifacts == nil || len(empty.Artifacts) != 0 {
		t.Errorf("whitelist:service_test - expected empty non-nil list, got %+v, %v", empty, err)
	}
}

func TestProductVersions(t *testing.T) {
	milestone := int64(4)
	store := newFakeStore(1)
	store.versions = []db.ProductVersion{
		{ID: 1, ProductID: 1, Version: "7.10.0"},
		{ID: 2, ProductID: 1, Version: "7.2.0", CurrentProductMilestoneID: &milestone},
		{ID: 3, ProductID: 1, Version: "6.4.0"},
		{ID: 4, ProductID: 2, Version: "1.0.0"},
	}
	svc := NewService(NewServiceParams{Store: store})
	ctx := context.Background()

	pv, err := svc.GetProductVersion(ctx, &GetProductVersionInput{ID: 2})
	if err != nil {
		t.Fatalf("whitelist:service_test - unexpected error: %v", err)
	}
	if pv.Version != "7.2.0" || pv.CurrentProductMilestoneID == nil || *pv.CurrentProductMilestoneID != 4 {
		t.Errorf("whitelist:service_test - unexpected product version %+v", pv)
	}

	_, err = svc.GetProductVersion(ctx, &GetProductVersionInput{ID: 42})
	var se *ServiceError
	if !errors.As(err, &se) || se.Code != CodeNotFound {
		t.Errorf("whitelist:service_test - expected NOT_FOUND, got %v", err)
	}

	tests := []struct {
		name  string
		input ListProductVersionsInput
		want  []string
	}{
		{"all sorted", ListProductVersionsInput{ProductID: 1}, []string{"6.4.0", "7.2.0", "7.10.0"}},
		{"range", ListProductVersionsInput{ProductID: 1, Range: "^7.0"}, []string{"7.2.0", "7.10.0"}},
		{"other product", ListProductVersionsInput{ProductID: 2}, []string{"1.0.0"}},
		{"none", ListProductVersionsInput{ProductID: 9}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.ListProductVersions(ctx, &tt.input)
			if err != nil {
				t.Fatalf("whitelist:service_test - unexpected error: %v", err)
			}
			var got []string
			for _, v := range out.Versions {
				got = append(got, v.Version)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("whitelist:service_test - versions = %v, want %v", got, tt.want)
			}
		})
	}

	_, err = svc.ListProductVersions(ctx, &ListProductVersionsInput{ProductID: 1, Range: "not a range"})
	if !errors.As(err, &se) || se.Code != CodeInvalidArgument {
		t.Errorf("whitelist:service_test - expected INVALID_ARGUMENT for bad range, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	if h := NewService(NewServiceParams{Store: newFakeStore()}).Health(ctx); h.Status != "healthy" || !h.Checks.Database {
		t.Errorf("whitelist:service_test - expected healthy, got %+v", h)
	}

	failing := newFakeStore()
	failing.failWith = errStore
	if h := NewService(NewServiceParams{Store: failing}).Health(ctx); h.Status != "unhealthy" || h.Checks.Database {
		t.Errorf("whitelist:service_test - expected unhealthy, got %+v", h)
	}

	if h := NewService(NewServiceParams{}).Health(ctx); h.Status != "unhealthy" || h.Timestamp == "" {
		t.Errorf("whitelist:service_test - expected unhealthy without store, got %+v", h)
	}
}
