package machine

import (
	"github.com/dolthub/swiss"

	"github.com/mna/ippi/lang/ipperr"
	"github.com/mna/ippi/lang/program"
	"github.com/mna/ippi/lang/types"
)

// Frame is a mapping from variable name to variable cell. A cell holding a
// nil Value is defined but uninitialized, a state distinct from holding
// types.Nil.
type Frame struct {
	vars *swiss.Map[string, types.Value]
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{vars: swiss.NewMap[string, types.Value](8)}
}

// Define creates the uninitialized cell for name. It fails with a semantic
// error if the name is already defined in this frame.
func (f *Frame) Define(name string) error {
	if _, ok := f.vars.Get(name); ok {
		return ipperr.Errorf(ipperr.Semantic, "variable %s redefined", name)
	}
	f.vars.Put(name, nil)
	return nil
}

// Assign overwrites the cell for name, which must already be defined.
func (f *Frame) Assign(name string, v types.Value) error {
	if _, ok := f.vars.Get(name); !ok {
		return ipperr.Errorf(ipperr.VarNotExist, "variable %s does not exist", name)
	}
	f.vars.Put(name, v)
	return nil
}

// Read returns the value of the cell for name. Reading an uninitialized
// cell fails with a missing value error unless allowUninit is set, in which
// case a nil Value is returned.
func (f *Frame) Read(name string, allowUninit bool) (types.Value, error) {
	v, ok := f.vars.Get(name)
	if !ok {
		return nil, ipperr.Errorf(ipperr.VarNotExist, "variable %s does not exist", name)
	}
	if v == nil && !allowUninit {
		return nil, ipperr.Errorf(ipperr.MissingValue, "variable %s is not initialized", name)
	}
	return v, nil
}

// frame returns the frame designated by tag, failing with a frame error
// when the local frame stack is empty or the temporary frame is absent.
func (m *Machine) frame(tag program.FrameTag) (*Frame, error) {
	switch tag {
	case program.GF:
		return m.gf, nil
	case program.LF:
		if len(m.lf) == 0 {
			return nil, ipperr.Errorf(ipperr.InvalidFrame, "local frame stack is empty")
		}
		return m.lf[len(m.lf)-1], nil
	default: // program.TF
		if m.tf == nil {
			return nil, ipperr.Errorf(ipperr.InvalidFrame, "temporary frame does not exist")
		}
		return m.tf, nil
	}
}

func (m *Machine) define(tag program.FrameTag, name string) error {
	f, err := m.frame(tag)
	if err != nil {
		return err
	}
	return f.Define(name)
}

func (m *Machine) assign(dst program.Operand, v types.Value) error {
	f, err := m.frame(dst.Frame)
	if err != nil {
		return err
	}
	return f.Assign(dst.Name, v)
}

func (m *Machine) readVar(tag program.FrameTag, name string, allowUninit bool) (types.Value, error) {
	f, err := m.frame(tag)
	if err != nil {
		return nil, err
	}
	return f.Read(name, allowUninit)
}

// createTF replaces the temporary frame with a new empty one, discarding
// any previous temporary frame.
func (m *Machine) createTF() {
	m.tf = NewFrame()
}

// pushTF moves the temporary frame onto the local frame stack; the
// temporary frame becomes absent.
func (m *Machine) pushTF() error {
	if m.tf == nil {
		return ipperr.Errorf(ipperr.InvalidFrame, "temporary frame does not exist")
	}
	m.lf = append(m.lf, m.tf)
	m.tf = nil
	return nil
}

// popLF pops the top of the local frame stack into the temporary frame,
// discarding any previous temporary frame.
func (m *Machine) popLF() error {
	if len(m.lf) == 0 {
		return ipperr.Errorf(ipperr.InvalidFrame, "local frame stack is empty")
	}
	m.tf = m.lf[len(m.lf)-1]
	m.lf = m.lf[:len(m.lf)-1]
	return nil
}
