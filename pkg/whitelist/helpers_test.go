package whitelist

import (
	"context"
	"errors"
	"sync"

	"github.com/matejonnet/dependency-analysis/pkg/analyser"
	"github.com/matejonnet/dependency-analysis/pkg/db"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu        sync.Mutex
	products  map[int64]bool
	whitelist map[int64][]db.WhitelistArtifact
	versions  []db.ProductVersion
	failWith  error
}

func newFakeStore(productIDs ...int64) *fakeStore {
	s := &fakeStore{products: map[int64]bool{}, whitelist: map[int64][]db.WhitelistArtifact{}}
	for _, id := range productIDs {
		s.products[id] = true
	}
	return s
}

func (s *fakeStore) Ping(context.Context) error { return s.failWith }

func (s *fakeStore) ProductExists(_ context.Context, id int64) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id], nil
}

func (s *fakeStore) AddWhitelistArtifact(_ context.Context, productID int64, groupID, artifactID, version string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.whitelist[productID] {
		if a.GroupID == groupID && a.ArtifactID == artifactID && a.Version == version {
			return false, nil
		}
	}
	s.whitelist[productID] = append(s.whitelist[productID], db.WhitelistArtifact{
		ID:         int64(len(s.whitelist[productID]) + 1),
		ProductID:  productID,
		GroupID:    groupID,
		ArtifactID: artifactID,
		Version:    version,
	})
	return true, nil
}

func (s *fakeStore) ListWhitelist(_ context.Context, productID int64) ([]db.WhitelistArtifact, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.WhitelistArtifact(nil), s.whitelist[productID]...), nil
}

func (s *fakeStore) GetProductVersion(_ context.Context, id int64) (*db.ProductVersion, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, v := range s.versions {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListProductVersions(_ context.Context, productID int64) ([]db.ProductVersion, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []db.ProductVersion
	for _, v := range s.versions {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

// fakeAnalyser returns a fixed result and records the last request.
type fakeAnalyser struct {
	result *analyser.Result
	err    error
	got    analyser.PomRequest
	calls  int
}

func (a *fakeAnalyser) AnalysePom(_ context.Context, req analyser.PomRequest) (*analyser.Result, error) {
	a.calls++
	a.got = req
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

var errStore = errors.New("connection refused")
