// Package classpath assembles the JVM classpath and library path, including
// discovery of the companion jar shipped next to the host application.
package classpath

import (
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/coreos/go-semver/semver"

	"github.com/jvmkit/jni-runtime/errors"
)

// CompanionVersion is the companion jar line this library speaks. Jars from
// another minor line use a different wire surface and are skipped during
// discovery.
const CompanionVersion = "0.13.0"

const (
	companionPrefix = "j4rs-"
	companionSuffix = "-jar-with-dependencies.jar"
)

// depsDirName is the directory next to the application that holds the
// companion jar and the native callback library.
const depsDirName = "jassets"

// Separator returns the platform's classpath entry separator.
func Separator() string {
	if goruntime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// CompanionJarName returns the file name of the companion jar for a version.
func CompanionJarName(version string) string {
	return companionPrefix + version + companionSuffix
}

// DepsDir returns the dependency directory under basePath.
func DepsDir(basePath string) string {
	return filepath.Join(basePath, depsDirName)
}

// DefaultBasePath returns the directory of the running executable, the
// default location the dependency directory is resolved against.
func DefaultBasePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.General(errors.PhaseConfig, "cannot locate the running executable", err)
	}
	return filepath.Dir(exe), nil
}

// Assemble joins the explicit entries with every usable jar found in the
// dependency directory under basePath. An empty basePath skips discovery.
func Assemble(basePath string, entries []string) (string, error) {
	cp := make([]string, 0, len(entries)+1)
	cp = append(cp, entries...)

	if basePath != "" {
		jars, err := discoverJars(DepsDir(basePath))
		if err != nil {
			return "", err
		}
		cp = append(cp, jars...)
	}
	return strings.Join(cp, Separator()), nil
}

// discoverJars lists the jars in dir, skipping companion jars from an
// incompatible version line.
func discoverJars(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.General(errors.PhaseConfig, "cannot read the dependency directory "+dir, err)
	}

	var jars []string
	for _, ent := range ents {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".jar") {
			continue
		}
		if v, ok := parseCompanionVersion(name); ok && !Compatible(v) {
			continue
		}
		jars = append(jars, filepath.Join(dir, name))
	}
	return jars, nil
}

// parseCompanionVersion extracts the version of a companion jar file name.
// Non-companion jars report false.
func parseCompanionVersion(name string) (*semver.Version, bool) {
	if !strings.HasPrefix(name, companionPrefix) || !strings.HasSuffix(name, companionSuffix) {
		return nil, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, companionPrefix), companionSuffix)
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Compatible reports whether a companion jar version speaks this library's
// wire surface. Major and minor must match; patch releases are compatible.
func Compatible(v *semver.Version) bool {
	want := semver.New(CompanionVersion)
	return v.Major == want.Major && v.Minor == want.Minor
}
