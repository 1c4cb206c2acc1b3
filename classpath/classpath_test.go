package classpath

import (
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/coreos/go-semver/semver"
)

func TestSeparator(t *testing.T) {
	sep := Separator()
	if goruntime.GOOS == "windows" {
		if sep != ";" {
			t.Fatalf("separator = %q, want ;", sep)
		}
		return
	}
	if sep != ":" {
		t.Fatalf("separator = %q, want :", sep)
	}
}

func TestCompanionJarName(t *testing.T) {
	got := CompanionJarName("0.13.0")
	if got != "j4rs-0.13.0-jar-with-dependencies.jar" {
		t.Fatalf("CompanionJarName = %q", got)
	}
}

func TestParseCompanionVersion(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		version string
	}{
		{"j4rs-0.13.0-jar-with-dependencies.jar", true, "0.13.0"},
		{"j4rs-1.2.3-jar-with-dependencies.jar", true, "1.2.3"},
		{"guava-33.0.jar", false, ""},
		{"j4rs-not-a-version-jar-with-dependencies.jar", false, ""},
		{"j4rs-0.13.0.jar", false, ""},
	}
	for _, tt := range tests {
		v, ok := parseCompanionVersion(tt.name)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && v.String() != tt.version {
			t.Errorf("%s: version = %s, want %s", tt.name, v, tt.version)
		}
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{CompanionVersion, true},
		{"0.13.9", true},
		{"0.12.0", false},
		{"0.14.0", false},
		{"1.13.0", false},
	}
	for _, tt := range tests {
		if got := Compatible(semver.New(tt.version)); got != tt.want {
			t.Errorf("Compatible(%s) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestAssembleWithoutBasePath(t *testing.T) {
	cp, err := Assemble("", []string{"a.jar", "b.jar"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := "a.jar" + Separator() + "b.jar"
	if cp != want {
		t.Fatalf("classpath = %q, want %q", cp, want)
	}
}

func TestAssembleDiscoversJars(t *testing.T) {
	base := t.TempDir()
	deps := DepsDir(base)
	if err := os.MkdirAll(deps, 0o755); err != nil {
		t.Fatal(err)
	}

	files := []string{
		"app-lib.jar",
		CompanionJarName(CompanionVersion),
		CompanionJarName("0.12.0"), // wrong line, must be skipped
		"notes.txt",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(deps, f), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cp, err := Assemble(base, []string{"explicit.jar"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if !strings.Contains(cp, "explicit.jar") {
		t.Error("explicit entry missing from the classpath")
	}
	if !strings.Contains(cp, "app-lib.jar") {
		t.Error("discovered jar missing from the classpath")
	}
	if !strings.Contains(cp, CompanionJarName(CompanionVersion)) {
		t.Error("compatible companion jar missing from the classpath")
	}
	if strings.Contains(cp, CompanionJarName("0.12.0")) {
		t.Error("incompatible companion jar must be skipped")
	}
	if strings.Contains(cp, "notes.txt") {
		t.Error("non-jar file leaked into the classpath")
	}
}

func TestAssembleMissingDepsDir(t *testing.T) {
	if _, err := Assemble(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatal("expected an error for a missing dependency directory")
	}
}
