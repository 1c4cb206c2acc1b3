package jvm

import (
	"sync"

	"github.com/jvmkit/jni-runtime/classpath"
	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// defaultLibName is the native library the companion loads to reach the
// exported callback entrypoint, without platform prefix or extension.
const defaultLibName = "jni_runtime"

// Builder configures and creates Runtimes. A zero Builder is not usable;
// start with NewBuilder. Build may be called repeatedly; all Runtimes from
// one builder share the same VM state.
type Builder struct {
	entries       []string
	javaOpts      []string
	basePath      string
	libName       string
	skipLib       bool
	detachOnClose bool
	provider      jni.Provider

	stateOnce sync.Once
	st        *state
}

// NewBuilder returns a builder with defaults: detach on last close, the
// built-in callback library name and no explicit classpath.
func NewBuilder() *Builder {
	return &Builder{
		libName:       defaultLibName,
		detachOnClose: true,
	}
}

// ClasspathEntry appends one classpath entry.
func (b *Builder) ClasspathEntry(entry string) *Builder {
	b.entries = append(b.entries, entry)
	return b
}

// ClasspathEntries appends several classpath entries.
func (b *Builder) ClasspathEntries(entries ...string) *Builder {
	b.entries = append(b.entries, entries...)
	return b
}

// JavaOpt appends one VM option string, passed verbatim.
func (b *Builder) JavaOpt(opt string) *Builder {
	b.javaOpts = append(b.javaOpts, opt)
	return b
}

// JavaOpts appends several VM option strings.
func (b *Builder) JavaOpts(opts ...string) *Builder {
	b.javaOpts = append(b.javaOpts, opts...)
	return b
}

// BasePath sets the directory the dependency directory is resolved
// against. When unset, discovery is skipped entirely.
func (b *Builder) BasePath(path string) *Builder {
	b.basePath = path
	return b
}

// NativeLibName overrides the native library name announced to the
// companion for callbacks.
func (b *Builder) NativeLibName(name string) *Builder {
	b.libName = name
	return b
}

// SkipNativeLib disables callback initialization. Channel operations on
// Runtimes built this way will never receive deliveries from custom Java
// code, but everything else works.
func (b *Builder) SkipNativeLib() *Builder {
	b.skipLib = true
	return b
}

// DetachOnClose controls whether closing the last Runtime detaches the
// thread from the VM. Defaults to true.
func (b *Builder) DetachOnClose(detach bool) *Builder {
	b.detachOnClose = detach
	return b
}

// WithProvider substitutes the JNI provider. Runtimes built with a custom
// provider get VM state isolated from the process default, which is what
// tests want.
func (b *Builder) WithProvider(p jni.Provider) *Builder {
	b.provider = p
	return b
}

func (b *Builder) resolveState() (*state, error) {
	if b.provider == nil {
		return defaultState()
	}
	b.stateOnce.Do(func() {
		b.st = newState(b.provider)
	})
	return b.st, nil
}

// Attach returns a Runtime for the calling goroutine with all defaults,
// creating the process VM if it does not exist yet. Shorthand for
// NewBuilder().Build().
func Attach() (*Runtime, error) {
	return NewBuilder().Build()
}

// Build creates (or attaches to) the JVM and returns a Runtime for the
// calling goroutine.
func (b *Builder) Build() (*Runtime, error) {
	st, err := b.resolveState()
	if err != nil {
		return nil, err
	}

	cp, err := classpath.Assemble(b.basePath, b.entries)
	if err != nil {
		return nil, err
	}

	var opts []string
	if cp != "" {
		opts = append(opts, "-Djava.class.path="+cp)
	}
	if b.basePath != "" {
		opts = append(opts, "-Djava.library.path="+classpath.DepsDir(b.basePath))
	}
	opts = append(opts, b.javaOpts...)

	lib := b.libName
	if b.skipLib {
		lib = ""
	}

	rt, err := st.attach(&jni.Options{Options: opts}, lib, b.detachOnClose)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBootstrap, errors.KindOf(err), err, "failed to build a runtime")
	}
	return rt, nil
}
