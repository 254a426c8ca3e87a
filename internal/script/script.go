// Package script runs YAML scenarios against named Box and ArrayBox
// handles and checks each step's outcome.
//
// A scenario file holds one or more YAML documents:
//
//	name: alias write is shared
//	steps:
//	  - {op: new_box, handle: b}
//	  - {op: write, handle: b, value: 42}
//	  - {op: copy, handle: b, target: alias}
//	  - {op: write, handle: alias, value: 666}
//	  - {op: read, handle: b, expect: 666}
//	  - {op: move, handle: b, target: c}
//	  - {op: read, handle: b, expect_error: uninitialized_access}
//
// Handles hold int64 values. A step passes when its op produced the
// expected value, equality or error kind; any other error fails it.
package script

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rawbytedev/safeptr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation plus the expectations checked after it ran.
type Step struct {
	Op     string `yaml:"op"`
	Handle string `yaml:"handle"`
	Target string `yaml:"target,omitempty"`
	Index  int    `yaml:"index,omitempty"`
	Value  int64  `yaml:"value,omitempty"`
	Length int    `yaml:"length,omitempty"`

	Expect      *int64 `yaml:"expect,omitempty"`
	ExpectError string `yaml:"expect_error,omitempty"`
	ExpectEqual *bool  `yaml:"expect_equal,omitempty"`

	// inspected by the inspect op
	Empty       *bool `yaml:"empty,omitempty"`
	Initialized *bool `yaml:"initialized,omitempty"`
	Aliasing    *bool `yaml:"aliasing,omitempty"`
	Len         *int  `yaml:"len,omitempty"`
}

var (
	ErrUnknownOp     = errors.New("script: unknown op")
	ErrUnknownHandle = errors.New("script: unknown handle")
	ErrHandleExists  = errors.New("script: handle already exists")
)

// Load decodes every scenario document in r. Unknown keys are rejected.
func Load(r io.Reader) ([]Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out []Scenario
	for {
		var s Scenario
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("script: decode scenario %d: %w", len(out)+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func LoadFile(path string) ([]Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

type StepResult struct {
	Step   int
	Op     string
	Handle string
	Passed bool
	Detail string
}

type Report struct {
	Scenario string
	Steps    []StepResult
}

// Failed counts the steps that did not pass.
func (r Report) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if !s.Passed {
			n++
		}
	}
	return n
}

// Runner executes scenarios. Each Run starts with an empty handle registry.
type Runner struct {
	logger *zap.Logger
	boxes  map[string]*safeptr.Box[int64]
	arrays map[string]*safeptr.ArrayBox[int64]
}

func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

func (r *Runner) Run(s Scenario) Report {
	r.boxes = make(map[string]*safeptr.Box[int64])
	r.arrays = make(map[string]*safeptr.ArrayBox[int64])
	defer r.freeAll()

	rep := Report{Scenario: s.Name}
	for i, st := range s.Steps {
		res := StepResult{Step: i + 1, Op: st.Op, Handle: st.Handle, Passed: true}
		if err := r.step(st); err != nil {
			res.Passed = false
			res.Detail = err.Error()
			r.logger.Debug("step failed",
				zap.String("scenario", s.Name),
				zap.Int("step", i+1),
				zap.String("op", st.Op),
				zap.Error(err),
			)
		}
		rep.Steps = append(rep.Steps, res)
	}
	return rep
}

// freeAll releases what the scenario left behind. Aliases go first so
// owners are the last to touch shared storage.
func (r *Runner) freeAll() {
	for _, b := range r.boxes {
		if b.Aliasing() {
			b.Free()
		}
	}
	for _, a := range r.arrays {
		if a.Aliasing() {
			a.Free()
		}
	}
	for _, b := range r.boxes {
		b.Free()
	}
	for _, a := range r.arrays {
		a.Free()
	}
}

// outcome is what an op produced, before expectations are applied.
type outcome struct {
	value *int64
	equal *bool
	err   error
}

func (r *Runner) step(st Step) error {
	out, err := r.apply(st)
	if err != nil {
		return err
	}
	if st.ExpectError != "" {
		want, err := safeptr.ParseKind(st.ExpectError)
		if err != nil {
			return err
		}
		if out.err == nil {
			return fmt.Errorf("expected %s error, op succeeded", want)
		}
		if got := safeptr.KindOf(out.err); got != want {
			return fmt.Errorf("expected %s error, got %s: %v", want, got, out.err)
		}
	} else if out.err != nil {
		return fmt.Errorf("unexpected error: %w", out.err)
	}
	if st.Expect != nil {
		if out.value == nil {
			return fmt.Errorf("expected value %d, op produced none", *st.Expect)
		}
		if *out.value != *st.Expect {
			return fmt.Errorf("expected value %d, got %d", *st.Expect, *out.value)
		}
	}
	if st.ExpectEqual != nil {
		if out.equal == nil {
			return fmt.Errorf("expected equality %t, op produced none", *st.ExpectEqual)
		}
		if *out.equal != *st.ExpectEqual {
			return fmt.Errorf("expected equality %t, got %t", *st.ExpectEqual, *out.equal)
		}
	}
	return nil
}

func (r *Runner) apply(st Step) (outcome, error) {
	switch st.Op {
	case "new_box":
		if err := r.claim(st.Handle); err != nil {
			return outcome{}, err
		}
		r.boxes[st.Handle] = safeptr.NewBoxWithOptions[int64](safeptr.Options{Logger: r.logger})
		return outcome{}, nil
	case "new_array":
		if err := r.claim(st.Handle); err != nil {
			return outcome{}, err
		}
		a, err := safeptr.NewArrayBoxWithAllocator[int64](st.Length, nil, safeptr.Options{Logger: r.logger})
		if err == nil {
			r.arrays[st.Handle] = a
		}
		return outcome{err: err}, nil
	}

	if b, ok := r.boxes[st.Handle]; ok {
		return r.applyBox(st, b)
	}
	if a, ok := r.arrays[st.Handle]; ok {
		return r.applyArray(st, a)
	}
	if st.Op != "" && !knownOp(st.Op) {
		return outcome{}, fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
	}
	return outcome{}, fmt.Errorf("%w %q", ErrUnknownHandle, st.Handle)
}

func knownOp(op string) bool {
	switch op {
	case "write", "read", "access_mut", "reset", "free", "copy", "move", "transfer", "equal", "inspect":
		return true
	}
	return false
}

// claim reserves a fresh handle name.
func (r *Runner) claim(name string) error {
	if name == "" {
		return fmt.Errorf("%w %q", ErrUnknownHandle, name)
	}
	_, isBox := r.boxes[name]
	_, isArray := r.arrays[name]
	if isBox || isArray {
		return fmt.Errorf("%w: %q", ErrHandleExists, name)
	}
	return nil
}

func (r *Runner) applyBox(st Step, b *safeptr.Box[int64]) (outcome, error) {
	switch st.Op {
	case "write":
		return outcome{err: b.Write(st.Value)}, nil
	case "read":
		v, err := b.Read()
		if err != nil {
			return outcome{err: err}, nil
		}
		return outcome{value: &v}, nil
	case "access_mut":
		p, err := b.AccessMut()
		if err != nil {
			return outcome{err: err}, nil
		}
		*p = st.Value
		return outcome{}, nil
	case "reset":
		b.Reset()
		return outcome{}, nil
	case "free":
		b.Free()
		return outcome{}, nil
	case "copy", "move":
		if err := r.claim(st.Target); err != nil {
			return outcome{}, err
		}
		if st.Op == "copy" {
			r.boxes[st.Target] = b.Copy()
		} else {
			r.boxes[st.Target] = b.Move()
		}
		return outcome{}, nil
	case "transfer":
		dst, ok := r.boxes[st.Target]
		if !ok {
			return outcome{}, fmt.Errorf("%w %q", ErrUnknownHandle, st.Target)
		}
		b.TransferTo(dst)
		return outcome{}, nil
	case "equal":
		var eq bool
		var err error
		if st.Target != "" {
			other, ok := r.boxes[st.Target]
			if !ok {
				return outcome{}, fmt.Errorf("%w %q", ErrUnknownHandle, st.Target)
			}
			eq, err = safeptr.EqualBox(b, other)
		} else {
			eq, err = safeptr.Equal(b, st.Value)
		}
		if err != nil {
			return outcome{err: err}, nil
		}
		return outcome{equal: &eq}, nil
	case "inspect":
		n := 0
		if !b.Empty() {
			n = 1
		}
		return outcome{}, inspect(st, b.Empty(), b.Initialized(), b.Aliasing(), n)
	}
	return outcome{}, fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
}

func (r *Runner) applyArray(st Step, a *safeptr.ArrayBox[int64]) (outcome, error) {
	switch st.Op {
	case "write":
		return outcome{err: a.Write(st.Index, st.Value)}, nil
	case "read":
		v, err := a.Read(st.Index)
		if err != nil {
			return outcome{err: err}, nil
		}
		return outcome{value: &v}, nil
	case "access_mut":
		p, err := a.At(st.Index)
		if err != nil {
			return outcome{err: err}, nil
		}
		*p = st.Value
		return outcome{}, nil
	case "reset":
		return outcome{err: a.Reset(st.Length)}, nil
	case "free":
		a.Free()
		return outcome{}, nil
	case "copy", "move":
		if err := r.claim(st.Target); err != nil {
			return outcome{}, err
		}
		if st.Op == "copy" {
			r.arrays[st.Target] = a.Copy()
		} else {
			r.arrays[st.Target] = a.Move()
		}
		return outcome{}, nil
	case "transfer":
		dst, ok := r.arrays[st.Target]
		if !ok {
			return outcome{}, fmt.Errorf("%w %q", ErrUnknownHandle, st.Target)
		}
		a.TransferTo(dst)
		return outcome{}, nil
	case "equal":
		other, ok := r.arrays[st.Target]
		if !ok {
			return outcome{}, fmt.Errorf("%w %q", ErrUnknownHandle, st.Target)
		}
		eq, err := safeptr.EqualArrays(a, other)
		if err != nil {
			return outcome{err: err}, nil
		}
		return outcome{equal: &eq}, nil
	case "inspect":
		return outcome{}, inspect(st, a.Empty(), a.Initialized(), a.Aliasing(), a.Len())
	}
	return outcome{}, fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
}

func inspect(st Step, empty, initialized, aliasing bool, n int) error {
	if st.Empty != nil && *st.Empty != empty {
		return fmt.Errorf("expected empty=%t, got %t", *st.Empty, empty)
	}
	if st.Initialized != nil && *st.Initialized != initialized {
		return fmt.Errorf("expected initialized=%t, got %t", *st.Initialized, initialized)
	}
	if st.Aliasing != nil && *st.Aliasing != aliasing {
		return fmt.Errorf("expected aliasing=%t, got %t", *st.Aliasing, aliasing)
	}
	if st.Len != nil && *st.Len != n {
		return fmt.Errorf("expected len=%d, got %d", *st.Len, n)
	}
	return nil
}
