package decl

// Clone returns a deep copy of c.
func (c *Class) Clone() *Class {
	if c == nil {
		return nil
	}
	out := *c
	out.Interfaces = append([]string(nil), c.Interfaces...)
	out.Traits = append([]string(nil), c.Traits...)
	out.Methods = make(map[string]*Method, len(c.Methods))
	for k, m := range c.Methods {
		out.Methods[k] = m.Clone()
	}
	out.Properties = make(map[string]*Property, len(c.Properties))
	for k, p := range c.Properties {
		out.Properties[k] = p.Clone()
	}
	out.Constants = make(map[string]*Constant, len(c.Constants))
	for k, cst := range c.Constants {
		out.Constants[k] = cst.Clone()
	}
	return &out
}

// Clone returns a deep copy of f.
func (f *Function) Clone() *Function {
	if f == nil {
		return nil
	}
	out := *f
	out.ReturnType = f.ReturnType.Clone()
	out.Parameters = make([]*Parameter, len(f.Parameters))
	for i, p := range f.Parameters {
		out.Parameters[i] = p.Clone()
	}
	return &out
}

// Clone returns a deep copy of p.
func (p *Parameter) Clone() *Parameter {
	if p == nil {
		return nil
	}
	out := *p
	out.Type = p.Type.Clone()
	out.DefaultValue = p.DefaultValue.Clone()
	return &out
}

// Clone returns a deep copy of p.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	out := *p
	out.Type = p.Type.Clone()
	out.DefaultValue = p.DefaultValue.Clone()
	return &out
}

// Clone returns a copy of c with its own type.
func (c *Constant) Clone() *Constant {
	if c == nil {
		return nil
	}
	out := *c
	out.Type = c.Type.Clone()
	return &out
}
