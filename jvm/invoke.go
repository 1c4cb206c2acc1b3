package jvm

import (
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// promote turns a call-scoped result into an owned Instance. The local
// reference is always released, promotion succeeded or not.
func (rt *Runtime) promote(local jni.LocalRef, className string, phase errors.Phase) (*Instance, error) {
	global, err := rt.env.NewGlobalRef(jni.Ref(local))
	rt.env.DeleteLocalRef(local)
	if err != nil {
		return nil, errors.Wrap(phase, errors.KindJNI, err, "failed to retain result")
	}
	return &Instance{className: className, ref: global, state: rt.state}, nil
}

// newArgArray marshals args into an InvocationArg[] for the wire. cleanup
// releases the array and every element and must run after the invocation,
// on every path.
func (rt *Runtime) newArgArray(args []*InvocationArg) (jni.LocalRef, func(), error) {
	env, c := rt.env, &rt.state.cache

	arr, err := env.NewObjectArray(len(args), c.invArgClass)
	if err != nil {
		return 0, nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to allocate argument array")
	}

	locals := make([]jni.LocalRef, 0, len(args))
	cleanup := func() {
		for _, l := range locals {
			env.DeleteLocalRef(l)
		}
		env.DeleteLocalRef(arr)
	}

	for i, a := range args {
		obj, err := a.asObject(rt)
		if err != nil {
			cleanup()
			return 0, nil, err
		}
		locals = append(locals, obj)
		if err := env.SetObjectArrayElement(arr, i, jni.Ref(obj)); err != nil {
			cleanup()
			return 0, nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to store argument")
		}
	}
	return arr, cleanup, nil
}

// finishCall applies the invariant shared by every invocation: observe the
// exception state first, and only then promote the result. res may be null
// when the call threw.
func (rt *Runtime) finishCall(res jni.LocalRef, callErr error, class, method, resultClass string) (*Instance, error) {
	if callErr != nil {
		if !res.IsNil() {
			rt.env.DeleteLocalRef(res)
		}
		return nil, errors.Wrap(errors.PhaseInvoke, errors.KindJNI, callErr, "invocation failed")
	}
	if err := rt.checkPending(errors.PhaseInvoke, class, method); err != nil {
		if !res.IsNil() {
			rt.env.DeleteLocalRef(res)
		}
		return nil, err
	}
	return rt.promote(res, resultClass, errors.PhaseInvoke)
}

// CreateInstance constructs an instance of className (dot form, e.g.
// "java.util.ArrayList") through the companion factory.
func (rt *Runtime) CreateInstance(className string, args ...*InvocationArg) (*Instance, error) {
	Logger().Debug("creating instance", zap.String("class", className), zap.Int("args", len(args)))
	c := &rt.state.cache
	return rt.factoryCall(c.factoryInstantiate, className, "<init>", className, args)
}

// StaticClass returns a static-dispatch handle on className. Invoking on it
// calls the class's static methods.
func (rt *Runtime) StaticClass(className string) (*Instance, error) {
	env, c := rt.env, &rt.state.cache

	nameRef, err := env.NewString(className)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal class name")
	}
	defer env.DeleteLocalRef(nameRef)

	res, callErr := env.CallStaticObjectMethod(c.factoryClass, c.factoryCreateForStatic, jni.Object(jni.Ref(nameRef)))
	return rt.finishCall(res, callErr, className, "createForStatic", className)
}

// CreateJavaArray builds a Java array with component type className from
// the given arguments.
func (rt *Runtime) CreateJavaArray(className string, args ...*InvocationArg) (*Instance, error) {
	c := &rt.state.cache
	return rt.factoryCall(c.factoryCreateJavaArray, className, "createJavaArray", className+"[]", args)
}

// CreateJavaList builds a java.util.List whose elements deserialize as
// className.
func (rt *Runtime) CreateJavaList(className string, args ...*InvocationArg) (*Instance, error) {
	c := &rt.state.cache
	return rt.factoryCall(c.factoryCreateJavaList, className, "createJavaList", "java.util.List", args)
}

// factoryCall is the shared shape of the factory statics taking a class
// name and an argument array.
func (rt *Runtime) factoryCall(method jni.MethodID, className, methodName, resultClass string, args []*InvocationArg) (*Instance, error) {
	env, c := rt.env, &rt.state.cache

	nameRef, err := env.NewString(className)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal class name")
	}
	defer env.DeleteLocalRef(nameRef)

	arr, cleanup, err := rt.newArgArray(args)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, callErr := env.CallStaticObjectMethod(c.factoryClass, method,
		jni.Object(jni.Ref(nameRef)), jni.Object(jni.Ref(arr)))
	return rt.finishCall(res, callErr, className, methodName, resultClass)
}

// Invoke calls an instance method. The result is always wrapped, even when
// the method returns null or void on the Java side.
func (rt *Runtime) Invoke(inst *Instance, method string, args ...*InvocationArg) (*Instance, error) {
	Logger().Debug("invoking", zap.String("class", inst.className), zap.String("method", method))
	env, c := rt.env, &rt.state.cache

	methodRef, err := env.NewString(method)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal method name")
	}
	defer env.DeleteLocalRef(methodRef)

	arr, cleanup, err := rt.newArgArray(args)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, callErr := env.CallObjectMethod(jni.Ref(inst.ref), c.proxyInvoke,
		jni.Object(jni.Ref(methodRef)), jni.Object(jni.Ref(arr)))
	return rt.finishCall(res, callErr, inst.className, method, classNameUnknown)
}

// InvokeStatic calls a static method on className. It acquires a
// static-dispatch handle and goes through the proxy's invokeStatic entry;
// the plain invoke entry only answers instance methods.
func (rt *Runtime) InvokeStatic(className, method string, args ...*InvocationArg) (*Instance, error) {
	Logger().Debug("invoking static", zap.String("class", className), zap.String("method", method))
	static, err := rt.StaticClass(className)
	if err != nil {
		return nil, err
	}
	defer static.Close()

	env, c := rt.env, &rt.state.cache

	methodRef, err := env.NewString(method)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal method name")
	}
	defer env.DeleteLocalRef(methodRef)

	arr, cleanup, err := rt.newArgArray(args)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, callErr := env.CallObjectMethod(jni.Ref(static.ref), c.proxyInvokeStatic,
		jni.Object(jni.Ref(methodRef)), jni.Object(jni.Ref(arr)))
	return rt.finishCall(res, callErr, className, method, classNameUnknown)
}

// Field reads an instance field.
func (rt *Runtime) Field(inst *Instance, name string) (*Instance, error) {
	env, c := rt.env, &rt.state.cache

	nameRef, err := env.NewString(name)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal field name")
	}
	defer env.DeleteLocalRef(nameRef)

	res, callErr := env.CallObjectMethod(jni.Ref(inst.ref), c.proxyField, jni.Object(jni.Ref(nameRef)))
	return rt.finishCall(res, callErr, inst.className, name, classNameUnknown)
}

// CloneInstance duplicates the JVM-side handle. The clone is independently
// owned and closed.
func (rt *Runtime) CloneInstance(inst *Instance) (*Instance, error) {
	c := &rt.state.cache
	res, callErr := rt.env.CallStaticObjectMethod(c.proxyClass, c.proxyCloneInstance, jni.Object(jni.Ref(inst.ref)))
	return rt.finishCall(res, callErr, inst.className, "cloneInstance", inst.className)
}

// Cast re-types the instance as className. The JVM side validates the cast
// and throws if it is illegal.
func (rt *Runtime) Cast(inst *Instance, className string) (*Instance, error) {
	env, c := rt.env, &rt.state.cache

	nameRef, err := env.NewString(className)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal class name")
	}
	defer env.DeleteLocalRef(nameRef)

	res, callErr := env.CallStaticObjectMethod(c.proxyClass, c.proxyCast,
		jni.Object(jni.Ref(inst.ref)), jni.Object(jni.Ref(nameRef)))
	return rt.finishCall(res, callErr, inst.className, "cast", className)
}

// ToNative deserializes the instance's JSON representation into out, which
// must be a pointer.
func (rt *Runtime) ToNative(inst *Instance, out any) error {
	env, c := rt.env, &rt.state.cache

	res, callErr := env.CallObjectMethod(jni.Ref(inst.ref), c.proxyGetJSON)
	if callErr != nil {
		return errors.Wrap(errors.PhaseInvoke, errors.KindJNI, callErr, "getJson failed")
	}
	if err := rt.checkPending(errors.PhaseInvoke, inst.className, "getJson"); err != nil {
		if !res.IsNil() {
			env.DeleteLocalRef(res)
		}
		return err
	}

	data, err := env.GetString(jni.Ref(res))
	env.DeleteLocalRef(res)
	if err != nil {
		return errors.Wrap(errors.PhaseInvoke, errors.KindJNI, err, "failed to read JSON representation")
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return errors.Parse("failed to deserialize "+inst.className, err)
	}
	return nil
}

// InvokeToChannel calls an instance method whose results are pushed back
// asynchronously. The receiver must be closed when no longer needed.
func (rt *Runtime) InvokeToChannel(inst *Instance, method string, args ...*InvocationArg) (*InstanceReceiver, error) {
	env, c := rt.env, &rt.state.cache

	token, ch := rt.state.registry.register()
	Logger().Debug("invoking to channel",
		zap.String("class", inst.className), zap.String("method", method), zap.Int64("token", token))

	methodRef, err := env.NewString(method)
	if err != nil {
		rt.state.registry.unregister(token)
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal method name")
	}
	defer env.DeleteLocalRef(methodRef)

	arr, cleanup, err := rt.newArgArray(args)
	if err != nil {
		rt.state.registry.unregister(token)
		return nil, err
	}
	defer cleanup()

	callErr := env.CallVoidMethod(jni.Ref(inst.ref), c.proxyInvokeToChannel,
		jni.Long(token), jni.Object(jni.Ref(methodRef)), jni.Object(jni.Ref(arr)))
	if callErr != nil {
		rt.state.registry.unregister(token)
		return nil, errors.Wrap(errors.PhaseCallback, errors.KindJNI, callErr, "invokeToChannel failed")
	}
	if err := rt.checkPending(errors.PhaseCallback, inst.className, method); err != nil {
		rt.state.registry.unregister(token)
		return nil, err
	}
	return newReceiver(&rt.state.registry, token, ch), nil
}

// InitCallbackChannel arms the instance for arbitrary later pushes from the
// Java side. The receiver must be closed when no longer needed.
func (rt *Runtime) InitCallbackChannel(inst *Instance) (*InstanceReceiver, error) {
	c := &rt.state.cache

	token, ch := rt.state.registry.register()
	Logger().Debug("initializing callback channel",
		zap.String("class", inst.className), zap.Int64("token", token))

	callErr := rt.env.CallVoidMethod(jni.Ref(inst.ref), c.proxyInitCallback, jni.Long(token))
	if callErr != nil {
		rt.state.registry.unregister(token)
		return nil, errors.Wrap(errors.PhaseCallback, errors.KindJNI, callErr, "initializeCallbackChannel failed")
	}
	if err := rt.checkPending(errors.PhaseCallback, inst.className, "initializeCallbackChannel"); err != nil {
		rt.state.registry.unregister(token)
		return nil, err
	}
	return newReceiver(&rt.state.registry, token, ch), nil
}
