//go:build !jdk

package jni

import "github.com/jvmkit/jni-runtime/errors"

// Default returns the platform JNI provider. Without the "jdk" build tag
// no real VM backend is compiled in, so creation always fails; tests use
// the jnitest provider instead.
func Default() (Provider, error) {
	return nil, errors.General(errors.PhaseConfig,
		"no JVM backend compiled in (build with -tags jdk and a JDK on the cgo search path)", nil)
}
