package jvm

// Chainable strings invocations together without per-step error checks.
// The first error latches; later steps are skipped and Collect returns it.
// Intermediate instances produced by the chain are released as the chain
// advances; the instance the chain started from stays owned by the caller.
type Chainable struct {
	rt    *Runtime
	inst  *Instance
	owned bool
	err   error
}

// Chain starts a chain on an existing instance.
func (rt *Runtime) Chain(inst *Instance) *Chainable {
	return &Chainable{rt: rt, inst: inst}
}

// ChainCreate starts a chain by constructing an instance.
func (rt *Runtime) ChainCreate(className string, args ...*InvocationArg) *Chainable {
	inst, err := rt.CreateInstance(className, args...)
	return &Chainable{rt: rt, inst: inst, owned: true, err: err}
}

func (c *Chainable) step(next *Instance, err error) *Chainable {
	if err != nil {
		if c.owned && c.inst != nil {
			c.inst.Close()
		}
		return &Chainable{rt: c.rt, err: err}
	}
	if c.owned && c.inst != nil {
		c.inst.Close()
	}
	return &Chainable{rt: c.rt, inst: next, owned: true}
}

// Invoke calls a method on the chain's current instance.
func (c *Chainable) Invoke(method string, args ...*InvocationArg) *Chainable {
	if c.err != nil {
		return c
	}
	next, err := c.rt.Invoke(c.inst, method, args...)
	return c.step(next, err)
}

// Field reads a field of the chain's current instance.
func (c *Chainable) Field(name string) *Chainable {
	if c.err != nil {
		return c
	}
	next, err := c.rt.Field(c.inst, name)
	return c.step(next, err)
}

// Cast re-types the chain's current instance.
func (c *Chainable) Cast(className string) *Chainable {
	if c.err != nil {
		return c
	}
	next, err := c.rt.Cast(c.inst, className)
	return c.step(next, err)
}

// Collect ends the chain, transferring ownership of the final instance to
// the caller.
func (c *Chainable) Collect() (*Instance, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.inst, nil
}

// ToNative ends the chain by deserializing the final instance into out.
// The final instance is released if the chain owns it.
func (c *Chainable) ToNative(out any) error {
	if c.err != nil {
		return c.err
	}
	err := c.rt.ToNative(c.inst, out)
	if c.owned {
		c.inst.Close()
	}
	return err
}
