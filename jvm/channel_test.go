package jvm

import (
	"context"
	"testing"
	"time"

	"github.com/jvmkit/jni-runtime/jni"
	"github.com/jvmkit/jni-runtime/jni/jnitest"
)

// wireDispatch routes the fake VM's channel deliveries into the runtime's
// registry, standing in for the exported native entrypoint.
func wireDispatch(vm *jnitest.VM, rt *Runtime) {
	vm.OnChannelDeliver = func(env jni.Env, token int64, obj jni.Ref) {
		rt.DispatchCallback(env, token, obj)
	}
}

func TestInvokeToChannel(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	wireDispatch(vm, rt)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	limit, err := IntArg(rt, 3)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer limit.Close()

	recv, err := rt.InvokeToChannel(inst, "countTo", limit)
	if err != nil {
		t.Fatalf("InvokeToChannel: %v", err)
	}
	defer recv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for want := int64(1); want <= 3; want++ {
		delivery, err := recv.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv %d: %v", want, err)
		}
		var n int64
		if err := rt.ToNative(delivery, &n); err != nil {
			t.Fatalf("ToNative: %v", err)
		}
		delivery.Close()
		if n != want {
			t.Fatalf("delivery = %d, want %d: order must be preserved", n, want)
		}
	}

	select {
	case extra := <-recv.Chan():
		t.Fatalf("unexpected extra delivery %v", extra)
	default:
	}
}

func TestInvokeToChannelUnknownMethod(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	wireDispatch(vm, rt)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	if _, err := rt.InvokeToChannel(inst, "noSuchStream"); err == nil {
		t.Fatal("expected an error for an unknown channel method")
	}
}

func TestInitCallbackChannel(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	wireDispatch(vm, rt)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	recv, err := rt.InitCallbackChannel(inst)
	if err != nil {
		t.Fatalf("InitCallbackChannel: %v", err)
	}
	defer recv.Close()

	token, ok := vm.LastChannelToken()
	if !ok {
		t.Fatal("the JVM side never saw a token")
	}
	if token != recv.Token() {
		t.Fatalf("JVM saw token %d, receiver holds %d", token, recv.Token())
	}

	vm.Deliver(token, "ping")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	delivery, err := recv.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	defer delivery.Close()

	var msg string
	if err := rt.ToNative(delivery, &msg); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if msg != "ping" {
		t.Fatalf("delivery = %q, want ping", msg)
	}
}

func TestStaleTokenDeliveryDropped(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	wireDispatch(vm, rt)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	recv, err := rt.InitCallbackChannel(inst)
	if err != nil {
		t.Fatalf("InitCallbackChannel: %v", err)
	}
	token := recv.Token()
	recv.Close()

	baseline := vm.LiveGlobalRefs()
	vm.Deliver(token, "late")

	select {
	case d := <-recv.Chan():
		t.Fatalf("stale delivery %v reached the receiver", d)
	default:
	}
	if got := vm.LiveGlobalRefs(); got != baseline {
		t.Fatalf("global refs = %d, want %d: dropped deliveries must be released", got, baseline)
	}
}

func TestIsolatedStateKeepsProcessDispatcher(t *testing.T) {
	var routed int64
	jni.SetCallbackDispatcher(func(env jni.Env, token int64, obj jni.Ref) {
		routed = token
	})
	defer jni.SetCallbackDispatcher(func(jni.Env, int64, jni.Ref) {})

	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	wireDispatch(vm, rt)

	jni.DispatchCallback(nil, 42, 0)
	if routed != 42 {
		t.Fatal("building a provider-scoped runtime must not capture the process dispatcher")
	}
}

func TestTokenReuseKeepsGenerations(t *testing.T) {
	var reg callbackRegistry

	t1, _ := reg.register()
	if !reg.unregister(t1) {
		t.Fatal("unregister of a live token failed")
	}
	t2, ch2 := reg.register()
	if t1 == t2 {
		t.Fatal("a reused slot must produce a distinct token")
	}

	if reg.deliver(t1, nil) {
		t.Fatal("delivery on a stale token must be rejected")
	}
	if !reg.deliver(t2, nil) {
		t.Fatal("delivery on the live token failed")
	}
	<-ch2
}

func TestTokenUnpack(t *testing.T) {
	tests := []struct {
		index int32
		gen   uint32
	}{
		{0, 0},
		{0, 1},
		{41, 7},
		{1<<31 - 2, 1<<32 - 1},
	}
	for _, tt := range tests {
		token := packToken(tt.index, tt.gen)
		if token == 0 {
			t.Fatalf("token for %d/%d must be nonzero", tt.index, tt.gen)
		}
		idx, gen, ok := unpackToken(token)
		if !ok || idx != tt.index || gen != tt.gen {
			t.Errorf("roundtrip %d/%d = %d/%d/%v", tt.index, tt.gen, idx, gen, ok)
		}
	}
	if _, _, ok := unpackToken(0); ok {
		t.Error("zero must not unpack as a token")
	}
}

func TestReceiverCloseReleasesQueued(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	wireDispatch(vm, rt)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()
	baseline := vm.LiveGlobalRefs()

	limit, err := IntArg(rt, 3)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}

	recv, err := rt.InvokeToChannel(inst, "countTo", limit)
	if err != nil {
		t.Fatalf("InvokeToChannel: %v", err)
	}
	limit.Close()

	// Close without consuming: the three queued deliveries are released.
	recv.Close()
	if got := vm.LiveGlobalRefs(); got != baseline {
		t.Fatalf("global refs = %d, want %d after closing an unread receiver", got, baseline)
	}
}
