package jvm

import (
	goruntime "runtime"

	"go.uber.org/zap"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// Runtime is a per-goroutine handle on the process JVM. It owns the calling
// thread's JNI environment; the goroutine that built it stays pinned to its
// OS thread until Close. A Runtime must not be shared across goroutines;
// build one per goroutine instead. Instances may be shared freely.
type Runtime struct {
	state         *state
	env           jni.Env
	detachOnClose bool
	closed        bool
}

// initializeCallbacks tells the companion's callback support class which
// native library carries the exported channel entrypoint.
func (rt *Runtime) initializeCallbacks(libName string) error {
	env, c := rt.env, &rt.state.cache

	nameRef, err := env.NewString(libName)
	if err != nil {
		return errors.Wrap(errors.PhaseBootstrap, errors.KindJNI, err, "failed to marshal the native library name")
	}
	defer env.DeleteLocalRef(nameRef)

	if err := env.CallStaticVoidMethod(c.callbackClass, c.callbackInitialize, jni.Object(jni.Ref(nameRef))); err != nil {
		return errors.Wrap(errors.PhaseBootstrap, errors.KindJNI, err, "callback initialization failed")
	}
	return rt.checkPending(errors.PhaseBootstrap, callbackClassName, "initialize")
}

// checkPending observes and clears a pending JVM exception, turning it into
// a structured error. It must run after every invocation and before any
// returned reference is promoted.
func (rt *Runtime) checkPending(phase errors.Phase, class, method string) error {
	if !rt.env.ExceptionCheck() {
		return nil
	}
	rt.env.ExceptionDescribe()
	rt.env.ExceptionClear()
	return errors.JavaException(phase, class, method)
}

// DispatchCallback routes a JVM-originated delivery into this Runtime's
// callback registry. Embedders with their own native entrypoints call this;
// the built-in JDK entrypoint routes through the installed dispatcher
// instead.
func (rt *Runtime) DispatchCallback(env jni.Env, token int64, obj jni.Ref) {
	rt.state.dispatch(env, token, obj)
}

// Close releases the handle. When the last handle on the VM closes, the
// current thread is detached unless DetachOnClose(false) was set on the
// builder. The goroutine's OS thread pin is always released.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.closed = true

	s := rt.state
	s.mu.Lock()
	s.active--
	last := s.active == 0
	s.mu.Unlock()

	defer goruntime.UnlockOSThread()

	if last && rt.detachOnClose {
		Logger().Debug("last handle closed, detaching thread")
		if err := s.vm.DetachCurrentThread(); err != nil {
			return err
		}
	} else if last {
		Logger().Debug("last handle closed, leaving thread attached", zap.Bool("detachOnClose", rt.detachOnClose))
	}
	return nil
}
