package jvm

import (
	goruntime "runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// state is the per-VM shared bookkeeping: the provider, the created or
// attached VM, the populated reference cache, the live handle count and the
// callback registry. Real processes have exactly one; tests create isolated
// states through Builder.WithProvider.
type state struct {
	mu       sync.Mutex
	provider jni.Provider
	vm       jni.VM
	cache    refCache
	active   int
	registry callbackRegistry

	// ownsDispatcher marks the process-default state, the only one that
	// installs the process-wide callback dispatcher. Isolated states route
	// deliveries explicitly through Runtime.DispatchCallback; letting them
	// install would misroute equal tokens minted by separate registries.
	ownsDispatcher bool
}

func newState(p jni.Provider) *state {
	return &state{provider: p}
}

var (
	defaultStateOnce sync.Once
	defaultStateVal  *state
	defaultStateErr  error
)

// defaultState lazily builds the process-wide state on the platform
// provider. The error is sticky: a process without a JVM backend fails
// every Build the same way.
func defaultState() (*state, error) {
	defaultStateOnce.Do(func() {
		p, err := jni.Default()
		if err != nil {
			defaultStateErr = err
			return
		}
		defaultStateVal = newState(p)
		defaultStateVal.ownsDispatcher = true
	})
	return defaultStateVal, defaultStateErr
}

// attach creates the VM if needed, attaches the calling thread, populates
// the reference cache and hands out a Runtime. The calling goroutine is
// pinned to its OS thread for the life of the Runtime.
func (s *state) attach(opts *jni.Options, libName string, detachOnClose bool) (*Runtime, error) {
	goruntime.LockOSThread()

	s.mu.Lock()
	defer s.mu.Unlock()

	fail := func(err error) (*Runtime, error) {
		goruntime.UnlockOSThread()
		return nil, err
	}

	if s.vm == nil {
		vm, ok, err := s.provider.ExistingVM()
		if err != nil {
			return fail(errors.Bootstrap("failed to query for an existing JVM", err))
		}
		if ok {
			Logger().Debug("attaching to an already-running JVM")
			s.vm = vm
		} else {
			Logger().Info("creating JVM", zap.Strings("options", opts.Options))
			vm, err = s.provider.CreateVM(opts)
			if err != nil {
				return fail(err)
			}
			s.vm = vm
		}
	}

	env, err := s.vm.AttachCurrentThread()
	if err != nil {
		return fail(err)
	}

	if err := s.cache.populate(env); err != nil {
		return fail(err)
	}
	if env.ExceptionCheck() {
		env.ExceptionDescribe()
		env.ExceptionClear()
		return fail(errors.Bootstrap("the JVM raised an exception during bring-up", nil))
	}

	if s.ownsDispatcher {
		jni.SetCallbackDispatcher(s.dispatch)
	}

	rt := &Runtime{state: s, env: env, detachOnClose: detachOnClose}
	if libName != "" {
		if err := rt.initializeCallbacks(libName); err != nil {
			return fail(err)
		}
	}

	s.active++
	return rt, nil
}

// threadEnv returns an environment valid on the calling OS thread.
// Attaching a thread that is already attached hands back its existing
// environment, so this is safe from any goroutine once the VM exists.
func (s *state) threadEnv() (jni.Env, error) {
	s.mu.Lock()
	vm := s.vm
	s.mu.Unlock()
	if vm == nil {
		return nil, errors.JNI(errors.PhaseAttach, "no JVM to resolve an environment from", nil)
	}
	return vm.AttachCurrentThread()
}

// dispatch is the entry point for JVM-originated channel deliveries. It
// promotes the call-scoped reference before the native frame returns, then
// routes it by token. Stale deliveries and deliveries to a full receiver
// are dropped.
func (s *state) dispatch(env jni.Env, token int64, obj jni.Ref) {
	global, err := env.NewGlobalRef(obj)
	if err != nil {
		Logger().Warn("failed to retain callback delivery", zap.Int64("token", token), zap.Error(err))
		return
	}
	env.DeleteLocalRef(jni.LocalRef(obj))

	inst := &Instance{className: classNameUnknown, ref: global, state: s}
	if !s.registry.deliver(token, inst) {
		Logger().Warn("dropping callback delivery for inactive token", zap.Int64("token", token))
		if err := inst.Close(); err != nil {
			Logger().Warn("failed to release dropped delivery", zap.Error(err))
		}
	}
}
