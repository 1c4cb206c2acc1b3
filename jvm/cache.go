package jvm

import (
	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// boxedEntry caches one boxed primitive class and its single-argument
// constructor.
type boxedEntry struct {
	class jni.GlobalRef
	ctor  jni.MethodID
}

// refCache holds every class and method the bridge resolves, populated once
// per process under the lifecycle lock. Entries are durable references and
// method IDs, valid on any attached thread for the life of the VM.
type refCache struct {
	factoryClass           jni.GlobalRef
	factoryInstantiate     jni.MethodID
	factoryCreateForStatic jni.MethodID
	factoryCreateJavaArray jni.MethodID
	factoryCreateJavaList  jni.MethodID

	proxyClass           jni.GlobalRef
	proxyInvoke          jni.MethodID
	proxyInvokeStatic    jni.MethodID
	proxyField           jni.MethodID
	proxyGetJSON         jni.MethodID
	proxyInvokeToChannel jni.MethodID
	proxyInitCallback    jni.MethodID
	proxyCloneInstance   jni.MethodID
	proxyCast            jni.MethodID

	invArgClass          jni.GlobalRef
	invArgJavaCtor       jni.MethodID
	invArgSerializedCtor jni.MethodID
	invArgBasicCtor      jni.MethodID

	callbackClass      jni.GlobalRef
	callbackInitialize jni.MethodID

	boxed map[string]boxedEntry

	done bool
}

// populate resolves the full companion surface. It runs under the lifecycle
// lock; each entry is resolved at most once even if an earlier attempt
// failed partway through.
func (c *refCache) populate(env jni.Env) error {
	if c.done {
		return nil
	}

	if err := c.resolveClass(env, factoryClassName, &c.factoryClass); err != nil {
		return err
	}
	factoryMethods := []struct {
		id   *jni.MethodID
		name string
		sig  string
	}{
		{&c.factoryInstantiate, "instantiate", sigInstantiate},
		{&c.factoryCreateForStatic, "createForStatic", sigCreateForStatic},
		{&c.factoryCreateJavaArray, "createJavaArray", sigCreateJavaArray},
		{&c.factoryCreateJavaList, "createJavaList", sigCreateJavaList},
	}
	for _, m := range factoryMethods {
		if err := c.resolveStatic(env, c.factoryClass, factoryClassName, m.name, m.sig, m.id); err != nil {
			return err
		}
	}

	if err := c.resolveClass(env, proxyClassName, &c.proxyClass); err != nil {
		return err
	}
	proxyMethods := []struct {
		id   *jni.MethodID
		name string
		sig  string
	}{
		{&c.proxyInvoke, "invoke", sigInvoke},
		{&c.proxyInvokeStatic, "invokeStatic", sigInvokeStatic},
		{&c.proxyField, "field", sigField},
		{&c.proxyGetJSON, "getJson", sigGetJSON},
		{&c.proxyInvokeToChannel, "invokeToChannel", sigInvokeToChannel},
		{&c.proxyInitCallback, "initializeCallbackChannel", sigInitCallback},
	}
	for _, m := range proxyMethods {
		if err := c.resolveMethod(env, c.proxyClass, proxyClassName, m.name, m.sig, m.id); err != nil {
			return err
		}
	}
	if err := c.resolveStatic(env, c.proxyClass, proxyClassName, "cloneInstance", sigCloneInstance, &c.proxyCloneInstance); err != nil {
		return err
	}
	if err := c.resolveStatic(env, c.proxyClass, proxyClassName, "cast", sigCast, &c.proxyCast); err != nil {
		return err
	}

	if err := c.resolveClass(env, invArgClassName, &c.invArgClass); err != nil {
		return err
	}
	ctors := []struct {
		id  *jni.MethodID
		sig string
	}{
		{&c.invArgJavaCtor, sigInvArgJavaCtor},
		{&c.invArgSerializedCtor, sigInvArgSerializedCtor},
		{&c.invArgBasicCtor, sigInvArgBasicCtor},
	}
	for _, m := range ctors {
		if err := c.resolveMethod(env, c.invArgClass, invArgClassName, "<init>", m.sig, m.id); err != nil {
			return err
		}
	}

	if err := c.resolveClass(env, callbackClassName, &c.callbackClass); err != nil {
		return err
	}
	if err := c.resolveStatic(env, c.callbackClass, callbackClassName, "initialize", sigInitialize, &c.callbackInitialize); err != nil {
		return err
	}

	if c.boxed == nil {
		c.boxed = make(map[string]boxedEntry)
	}
	boxed := []struct {
		dotName string
		ctorSig string
	}{
		{ClassInteger, "(I)V"},
		{ClassLong, "(J)V"},
		{ClassShort, "(S)V"},
		{ClassByte, "(B)V"},
		{ClassFloat, "(F)V"},
		{ClassDouble, "(D)V"},
	}
	for _, b := range boxed {
		if _, ok := c.boxed[b.dotName]; ok {
			continue
		}
		var class jni.GlobalRef
		if err := c.resolveClass(env, slashed(b.dotName), &class); err != nil {
			return err
		}
		ctor, err := env.GetMethodID(class, "<init>", b.ctorSig)
		if err != nil {
			return errors.Resolution(b.dotName, "<init>"+b.ctorSig, err)
		}
		c.boxed[b.dotName] = boxedEntry{class: class, ctor: ctor}
	}

	c.done = true
	return nil
}

func (c *refCache) resolveClass(env jni.Env, name string, out *jni.GlobalRef) error {
	if !out.IsNil() {
		return nil
	}
	local, err := env.FindClass(name)
	if err != nil {
		return errors.Resolution(name, "", err)
	}
	global, err := env.NewGlobalRef(jni.Ref(local))
	env.DeleteLocalRef(local)
	if err != nil {
		return errors.Resolution(name, "", err)
	}
	*out = global
	return nil
}

func (c *refCache) resolveMethod(env jni.Env, class jni.GlobalRef, className, name, sig string, out *jni.MethodID) error {
	if *out != 0 {
		return nil
	}
	id, err := env.GetMethodID(class, name, sig)
	if err != nil {
		return errors.Resolution(className, name+sig, err)
	}
	*out = id
	return nil
}

func (c *refCache) resolveStatic(env jni.Env, class jni.GlobalRef, className, name, sig string, out *jni.MethodID) error {
	if *out != 0 {
		return nil
	}
	id, err := env.GetStaticMethodID(class, name, sig)
	if err != nil {
		return errors.Resolution(className, name+sig, err)
	}
	*out = id
	return nil
}
