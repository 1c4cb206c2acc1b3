package jvm

import (
	"testing"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni/jnitest"
)

func TestCreateInstanceAndInvoke(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	start, err := IntArg(rt, 40)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer start.Close()

	inst, err := rt.CreateInstance("acme.Counter", start)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	if inst.ClassName() != "acme.Counter" {
		t.Errorf("ClassName = %q, want acme.Counter", inst.ClassName())
	}

	two, err := IntArg(rt, 2)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer two.Close()

	res, err := rt.Invoke(inst, "add", two)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	defer res.Close()

	var n int64
	if err := rt.ToNative(res, &n); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if n != 42 {
		t.Fatalf("add result = %d, want 42", n)
	}

	if got := vm.LiveLocalRefs(); got != 0 {
		t.Errorf("%d local references leaked", got)
	}
}

func TestCreateInstanceUnknownClass(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	baseline := vm.LiveGlobalRefs()

	_, err := rt.CreateInstance("acme.Missing")
	if err == nil {
		t.Fatal("expected an error for an unknown class")
	}
	if !errors.IsJava(err) {
		t.Fatalf("error kind = %s, want java: %v", errors.KindOf(err), err)
	}

	if got := vm.LiveGlobalRefs(); got != baseline {
		t.Errorf("global refs = %d, want %d: nothing should be promoted on failure", got, baseline)
	}
	if got := vm.LiveLocalRefs(); got != 0 {
		t.Errorf("%d local references leaked on the failure path", got)
	}
}

func TestThrowingMethodPromotesNothing(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()
	baseline := vm.LiveGlobalRefs()

	_, err = rt.Invoke(inst, "fail")
	if !errors.IsJava(err) {
		t.Fatalf("expected a java error, got %v", err)
	}
	if got := vm.LiveGlobalRefs(); got != baseline {
		t.Errorf("global refs = %d, want %d after a throwing call", got, baseline)
	}
	if got := vm.LiveLocalRefs(); got != 0 {
		t.Errorf("%d local references leaked", got)
	}

	// The exception must be cleared: the next call succeeds.
	res, err := rt.Invoke(inst, "value")
	if err != nil {
		t.Fatalf("Invoke after a cleared exception: %v", err)
	}
	res.Close()
}

func TestUnknownMethod(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	if _, err := rt.Invoke(inst, "levitate"); !errors.IsJava(err) {
		t.Fatalf("expected a java error for an unknown method, got %v", err)
	}
}

func TestInvokeStatic(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	arg, err := IntArg(rt, 21)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer arg.Close()

	res, err := rt.InvokeStatic("acme.Counter", "twice", arg)
	if err != nil {
		t.Fatalf("InvokeStatic: %v", err)
	}
	defer res.Close()

	var n int64
	if err := rt.ToNative(res, &n); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if n != 42 {
		t.Fatalf("twice(21) = %d, want 42", n)
	}
	if got := vm.LiveLocalRefs(); got != 0 {
		t.Errorf("%d local references leaked", got)
	}
}

func TestStaticClassHandle(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	static, err := rt.StaticClass("acme.Counter")
	if err != nil {
		t.Fatalf("StaticClass: %v", err)
	}
	defer static.Close()

	if static.ClassName() != "acme.Counter" {
		t.Errorf("static handle class = %q, want acme.Counter", static.ClassName())
	}

	if _, err := rt.StaticClass("acme.Missing"); !errors.IsJava(err) {
		t.Fatalf("expected a java error for an unknown class, got %v", err)
	}
}

func TestInvokeRejectsStaticHandle(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	static, err := rt.StaticClass("acme.Counter")
	if err != nil {
		t.Fatalf("StaticClass: %v", err)
	}
	defer static.Close()

	arg, err := IntArg(rt, 5)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer arg.Close()

	// Static methods go through InvokeStatic; the instance entry throws.
	if _, err := rt.Invoke(static, "twice", arg); !errors.IsJava(err) {
		t.Fatalf("expected a java error for invoke on a static handle, got %v", err)
	}
	if got := vm.LiveLocalRefs(); got != 0 {
		t.Errorf("%d local references leaked", got)
	}
}

func TestField(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	start, err := IntArg(rt, 7)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer start.Close()

	inst, err := rt.CreateInstance("acme.Counter", start)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	f, err := rt.Field(inst, "count")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	defer f.Close()

	var n int64
	if err := rt.ToNative(f, &n); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if n != 7 {
		t.Fatalf("count = %d, want 7", n)
	}

	if _, err := rt.Field(inst, "missing"); !errors.IsJava(err) {
		t.Fatalf("expected a java error for an unknown field, got %v", err)
	}
}

func TestCloneInstance(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	clone, err := rt.CloneInstance(inst)
	if err != nil {
		t.Fatalf("CloneInstance: %v", err)
	}
	defer clone.Close()

	if clone.ClassName() != inst.ClassName() {
		t.Errorf("clone class = %q, want %q", clone.ClassName(), inst.ClassName())
	}
}

func TestCast(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	up, err := rt.Cast(inst, "acme.Device")
	if err != nil {
		t.Fatalf("Cast to a declared supertype: %v", err)
	}
	defer up.Close()
	if up.ClassName() != "acme.Device" {
		t.Errorf("cast class = %q, want acme.Device", up.ClassName())
	}

	if _, err := rt.Cast(inst, "acme.Unrelated"); !errors.IsJava(err) {
		t.Fatalf("expected a java error for an illegal cast, got %v", err)
	}
}

func TestCreateJavaArrayAndList(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)

	a1, err := IntArg(rt, 1)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer a1.Close()
	a2, err := IntArg(rt, 2)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer a2.Close()

	arr, err := rt.CreateJavaArray(ClassInteger, a1, a2)
	if err != nil {
		t.Fatalf("CreateJavaArray: %v", err)
	}
	defer arr.Close()

	var got []int32
	if err := rt.ToNative(arr, &got); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("array contents = %v, want [1 2]", got)
	}

	s, err := SerializedArg(ClassString, "x")
	if err != nil {
		t.Fatalf("SerializedArg: %v", err)
	}
	list, err := rt.CreateJavaList(ClassString, s)
	if err != nil {
		t.Fatalf("CreateJavaList: %v", err)
	}
	defer list.Close()

	var items []string
	if err := rt.ToNative(list, &items); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if len(items) != 1 || items[0] != "x" {
		t.Fatalf("list contents = %v, want [x]", items)
	}

	empty, err := rt.CreateJavaList(ClassString)
	if err != nil {
		t.Fatalf("CreateJavaList with no elements: %v", err)
	}
	defer empty.Close()
	if empty.ClassName() != "java.util.List" {
		t.Errorf("empty list class = %q, want java.util.List", empty.ClassName())
	}
	var none []string
	if err := rt.ToNative(empty, &none); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("empty list contents = %v, want none", none)
	}
}

func TestToNativeStruct(t *testing.T) {
	vm := newTestVM()
	vm.RegisterClass(&jnitest.Class{
		Name: "acme.Config",
		New: func(args []any) (any, error) {
			return map[string]any{"host": "localhost", "port": 8080}, nil
		},
	})
	rt := buildTestRuntime(t, vm)

	inst, err := rt.CreateInstance("acme.Config")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Close()

	var cfg struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}
	if err := rt.ToNative(inst, &cfg); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != 8080 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestInstanceArgPassesByReference(t *testing.T) {
	vm := newTestVM()
	vm.RegisterClass(&jnitest.Class{
		Name: "acme.Inspector",
		New:  func(args []any) (any, error) { return struct{}{}, nil },
		Methods: map[string]jnitest.Method{
			"inspect": func(recv any, args []any) (any, error) {
				c, ok := args[0].(*counter)
				if !ok {
					return false, nil
				}
				return c.n, nil
			},
		},
	})
	rt := buildTestRuntime(t, vm)

	seed, err := IntArg(rt, 11)
	if err != nil {
		t.Fatalf("IntArg: %v", err)
	}
	defer seed.Close()

	target, err := rt.CreateInstance("acme.Counter", seed)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer target.Close()

	inspector, err := rt.CreateInstance("acme.Inspector")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inspector.Close()

	res, err := rt.Invoke(inspector, "inspect", InstanceArg(target))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	defer res.Close()

	var n int64
	if err := rt.ToNative(res, &n); err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	if n != 11 {
		t.Fatalf("inspect saw %d, want 11: instance should pass by reference", n)
	}
}

func TestInstanceCloseFromAnotherGoroutine(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	baseline := vm.LiveGlobalRefs()

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	attaches := vm.AttachCount()

	done := make(chan error)
	go func() { done <- inst.Close() }()
	if err := <-done; err != nil {
		t.Fatalf("Close from another goroutine: %v", err)
	}

	if got := vm.LiveGlobalRefs(); got != baseline {
		t.Fatalf("global refs = %d, want %d after a cross-goroutine close", got, baseline)
	}
	// The release must go through an environment resolved for the closing
	// thread, not the one captured at creation.
	if got := vm.AttachCount(); got != attaches+1 {
		t.Fatalf("AttachCount = %d, want %d: Close must resolve the calling thread's env", got, attaches+1)
	}
}

func TestInstanceCloseReleasesOnce(t *testing.T) {
	vm := newTestVM()
	rt := buildTestRuntime(t, vm)
	baseline := vm.LiveGlobalRefs()

	inst, err := rt.CreateInstance("acme.Counter")
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if got := vm.LiveGlobalRefs(); got != baseline+1 {
		t.Fatalf("global refs = %d, want %d", got, baseline+1)
	}

	inst.Close()
	inst.Close()
	if got := vm.LiveGlobalRefs(); got != baseline {
		t.Fatalf("global refs = %d after double close, want %d", got, baseline)
	}
}
