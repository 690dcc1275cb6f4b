package analyser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const parentPom = `<project>
  <groupId>org.jboss.da</groupId>
  <artifactId>parent</artifactId>
  <version>1.2.0</version>
  <packaging>pom</packaging>
  <properties>
    <version.jackson>2.9.1</version.jackson>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>com.fasterxml.jackson.core</groupId>
        <artifactId>jackson-databind</artifactId>
        <version>${version.jackson}</version>
      </dependency>
      <dependency>
        <groupId>${project.groupId}</groupId>
        <artifactId>common</artifactId>
        <version>${project.version}</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
</project>`

const childPom = `<project>
  <parent>
    <groupId>org.jboss.da</groupId>
    <artifactId>parent</artifactId>
    <version>1.2.0</version>
  </parent>
  <artifactId>reports-backend</artifactId>
  <properties>
    <version.jackson>2.9.5</version.jackson>
  </properties>
  <dependencies>
    <dependency>
      <groupId>com.fasterxml.jackson.core</groupId>
      <artifactId>jackson-databind</artifactId>
    </dependency>
    <dependency>
      <groupId>org.jboss.da</groupId>
      <artifactId>common</artifactId>
    </dependency>
    <dependency>
      <groupId>org.projectlombok</groupId>
      <artifactId>lombok</artifactId>
      <version>1.16.18</version>
      <scope>provided</scope>
    </dependency>
    <dependency>
      <groupId>org.projectlombok</groupId>
      <artifactId>lombok</artifactId>
      <version>1.16.18</version>
    </dependency>
    <dependency>
      <groupId>org.unknown</groupId>
      <artifactId>unmanaged</artifactId>
    </dependency>
    <dependency>
      <groupId>org.unknown</groupId>
      <artifactId>ranged</artifactId>
      <version>[1.0,2.0)</version>
    </dependency>
  </dependencies>
</project>`

func writeFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		if err := util.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatalf("analyser:analyser_test - write %s: %v", name, err)
		}
	}
	return fs
}

func TestAnalyseFS_ParentInCheckout(t *testing.T) {
	fs := writeFS(t, map[string]string{
		"pom.xml":                 parentPom,
		"reports-backend/pom.xml": childPom,
	})

	a := New(Options{})
	res, err := a.AnalyseFS(context.Background(), fs, "reports-backend/pom.xml", nil)
	if err != nil {
		t.Fatalf("analyser:analyser_test - unexpected error: %v", err)
	}

	wantProject := semver.GAV{GroupID: "org.jboss.da", ArtifactID: "reports-backend", Version: "1.2.0"}
	if res.Project != wantProject {
		t.Errorf("analyser:analyser_test - project = %+v, want %+v", res.Project, wantProject)
	}

	wantDeps := []semver.GAV{
		{GroupID: "com.fasterxml.jackson.core", ArtifactID: "jackson-databind", Version: "2.9.5"},
		{GroupID: "org.jboss.da", ArtifactID: "common", Version: "1.2.0"},
		{GroupID: "org.projectlombok", ArtifactID: "lombok", Version: "1.16.18"},
	}
	if !reflect.DeepEqual(res.Dependencies, wantDeps) {
		t.Errorf("analyser:analyser_test - dependencies = %+v, want %+v", res.Dependencies, wantDeps)
	}

	wantSkipped := []string{"org.unknown:unmanaged", "org.unknown:ranged"}
	if !reflect.DeepEqual(res.Skipped, wantSkipped) {
		t.Errorf("analyser:analyser_test - skipped = %v, want %v", res.Skipped, wantSkipped)
	}

	if gavs := res.GAVs(); len(gavs) != 4 || gavs[0] != wantProject {
		t.Errorf("analyser:analyser_test - GAVs() = %+v", gavs)
	}
}

func TestAnalyseFS_ParentFromRepository(t *testing.T) {
	var (
		mu        sync.Mutex
		requested []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/maven2/org/jboss/da/parent/1.2.0/parent-1.2.0.pom" {
			_, _ = w.Write([]byte(parentPom))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	// The child sits at the root, so relativePath cannot find the parent.
	fs := writeFS(t, map[string]string{"pom.xml": childPom})

	a := New(Options{HTTPClient: srv.Client()})
	res, err := a.AnalyseFS(context.Background(), fs, "", []string{srv.URL + "/missing", srv.URL + "/maven2/"})
	if err != nil {
		t.Fatalf("analyser:analyser_test - unexpected error: %v", err)
	}
	if len(res.Dependencies) != 3 {
		t.Errorf("analyser:analyser_test - expected 3 dependencies, got %+v", res.Dependencies)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(requested) != 2 {
		t.Errorf("analyser:analyser_test - expected 2 repository requests, got %v", requested)
	}
}

func TestAnalyseFS_ParentMissing(t *testing.T) {
	fs := writeFS(t, map[string]string{"pom.xml": childPom})

	res, err := New(Options{}).AnalyseFS(context.Background(), fs, "pom.xml", nil)
	if err != nil {
		t.Fatalf("analyser:analyser_test - unexpected error: %v", err)
	}
	if res.Project.Version != "1.2.0" {
		t.Errorf("analyser:analyser_test - expected version inherited from <parent>, got %q", res.Project.Version)
	}
	// Without the parent's dependencyManagement only lombok has a version.
	if len(res.Dependencies) != 1 {
		t.Errorf("analyser:analyser_test - expected 1 dependency, got %+v", res.Dependencies)
	}
}

func TestAnalyseFS_Errors(t *testing.T) {
	fs := writeFS(t, map[string]string{
		"broken/pom.xml":    "<project>",
		"noversion/pom.xml": "<project><groupId>g</groupId><artifactId>a</artifactId></project>",
	})
	a := New(Options{})

	for _, p := range []string{"missing/pom.xml", "broken", "noversion/pom.xml"} {
		if _, err := a.AnalyseFS(context.Background(), fs, p, nil); err == nil {
			t.Errorf("analyser:analyser_test - expected error for %s", p)
		}
	}
}

func TestAnalysePom_UsesCheckout(t *testing.T) {
	fs := writeFS(t, map[string]string{"pom.xml": parentPom})

	var gotURL, gotRev string
	a := New(Options{Checkout: func(_ context.Context, scmURL, revision string) (billy.Filesystem, error) {
		gotURL, gotRev = scmURL, revision
		return fs, nil
	}})

	res, err := a.AnalysePom(context.Background(), PomRequest{SCMURL: "https://example.com/da.git", Revision: "v1", PomPath: "pom.xml"})
	if err != nil {
		t.Fatalf("analyser:analyser_test - unexpected error: %v", err)
	}
	if gotURL != "https://example.com/da.git" || gotRev != "v1" {
		t.Errorf("analyser:analyser_test - checkout called with %q %q", gotURL, gotRev)
	}
	if res.Project.String() != "org.jboss.da:parent:1.2.0" {
		t.Errorf("analyser:analyser_test - unexpected project %s", res.Project)
	}
	if len(res.Dependencies) != 0 {
		t.Errorf("analyser:analyser_test - dependencyManagement must not count as dependencies: %+v", res.Dependencies)
	}
}

func TestAnalysePom_CheckoutError(t *testing.T) {
	boom := errors.New("clone failed")
	a := New(Options{Checkout: func(context.Context, string, string) (billy.Filesystem, error) { return nil, boom }})

	if _, err := a.AnalysePom(context.Background(), PomRequest{SCMURL: "x"}); !errors.Is(err, boom) {
		t.Errorf("analyser:analyser_test - expected clone error, got %v", err)
	}
}

func TestCleanPomPath(t *testing.T) {
	tests := map[string]string{
		"":                  "pom.xml",
		".":                 "pom.xml",
		"/":                 "pom.xml",
		"pom.xml":           "pom.xml",
		"/module/pom.xml":   "module/pom.xml",
		"module":            "module/pom.xml",
		"../../etc/pom.xml": "etc/pom.xml",
		"a/b/../custom.xml": "a/custom.xml",
	}
	for in, want := range tests {
		if got := cleanPomPath(in); got != want {
			t.Errorf("analyser:analyser_test - cleanPomPath(%q) = %q, want %q", in, got, want)
		}
	}
}
