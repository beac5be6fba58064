package xsd

import (
	"errors"
	"fmt"
)

// maxUnroll bounds how many optional copies of a particle are expanded for
// a finite maxOccurs. Larger ranges are treated as unbounded.
const maxUnroll = 256

// maxStates bounds the size of a single compiled content model.
const maxStates = 1 << 16

var errModelTooLarge = errors.New("content model too large")

// contentModel is an epsilon-NFA over child element names compiled from a
// complex type's particle. xs:all content uses allGroup instead.
type contentModel struct {
	states []cmState
	start  int
	final  int
	all    *allGroup
}

type cmState struct {
	eps   []int
	edges []cmEdge
}

type cmEdge struct {
	elem *ElementDecl
	wild *Wildcard
	to   int
}

type allGroup struct {
	members  []*ElementParticle
	optional bool
}

type cmBuilder struct {
	m        *contentModel
	visiting map[*ModelGroup]bool
}

// compileModel builds the automaton for a particle. A nil particle
// compiles to a model accepting only the empty sequence.
func compileModel(p Particle) (*contentModel, error) {
	if g := topAll(p); g != nil {
		ag := &allGroup{optional: g.MinOccur == 0}
		for _, child := range g.Particles {
			ep, ok := child.(*ElementParticle)
			if !ok {
				return nil, fmt.Errorf("xs:all may only contain element particles")
			}
			ag.members = append(ag.members, ep)
		}
		return &contentModel{all: ag}, nil
	}
	b := &cmBuilder{m: &contentModel{}, visiting: make(map[*ModelGroup]bool)}
	if p == nil {
		s := b.newState()
		b.m.start, b.m.final = s, s
		return b.m, nil
	}
	in, out, err := b.particle(p)
	if err != nil {
		return nil, err
	}
	b.m.start, b.m.final = in, out
	return b.m, nil
}

func topAll(p Particle) *ModelGroup {
	switch t := p.(type) {
	case *ModelGroup:
		if t.Kind == All {
			return t
		}
	case *GroupRef:
		if t.Group != nil && t.Group.Kind == All {
			g := *t.Group
			g.MinOccur, g.MaxOccur = t.MinOccur, t.MaxOccur
			return &g
		}
	}
	return nil
}

func (b *cmBuilder) newState() int {
	b.m.states = append(b.m.states, cmState{})
	return len(b.m.states) - 1
}

func (b *cmBuilder) eps(from, to int) {
	b.m.states[from].eps = append(b.m.states[from].eps, to)
}

func (b *cmBuilder) particle(p Particle) (int, int, error) {
	if len(b.m.states) > maxStates {
		return 0, 0, errModelTooLarge
	}
	min, max := p.Occurs()
	if max == 0 {
		s := b.newState()
		return s, s, nil
	}
	return b.repeat(func() (int, int, error) { return b.term(p) }, min, max)
}

func (b *cmBuilder) term(p Particle) (int, int, error) {
	switch t := p.(type) {
	case *ElementParticle:
		in, out := b.newState(), b.newState()
		b.m.states[in].edges = append(b.m.states[in].edges, cmEdge{elem: t.Decl, to: out})
		return in, out, nil
	case *Wildcard:
		in, out := b.newState(), b.newState()
		b.m.states[in].edges = append(b.m.states[in].edges, cmEdge{wild: t, to: out})
		return in, out, nil
	case *GroupRef:
		if t.Group == nil {
			return 0, 0, fmt.Errorf("group %s is not resolved", t.Ref)
		}
		if b.visiting[t.Group] {
			return 0, 0, fmt.Errorf("group %s references itself", t.Ref)
		}
		b.visiting[t.Group] = true
		defer delete(b.visiting, t.Group)
		return b.group(t.Group)
	case *ModelGroup:
		return b.group(t)
	}
	return 0, 0, fmt.Errorf("unknown particle %T", p)
}

func (b *cmBuilder) group(g *ModelGroup) (int, int, error) {
	switch g.Kind {
	case Choice:
		in, out := b.newState(), b.newState()
		for _, child := range g.Particles {
			ci, co, err := b.particle(child)
			if err != nil {
				return 0, 0, err
			}
			b.eps(in, ci)
			b.eps(co, out)
		}
		return in, out, nil
	case All:
		// nested xs:all is not allowed by XSD 1.0; accept its members in
		// any order and number
		in := b.newState()
		for _, child := range g.Particles {
			ci, co, err := b.particle(child)
			if err != nil {
				return 0, 0, err
			}
			b.eps(in, ci)
			b.eps(co, in)
		}
		return in, in, nil
	}
	in := b.newState()
	cur := in
	for _, child := range g.Particles {
		ci, co, err := b.particle(child)
		if err != nil {
			return 0, 0, err
		}
		b.eps(cur, ci)
		cur = co
	}
	return in, cur, nil
}

func (b *cmBuilder) repeat(build func() (int, int, error), min, max int) (int, int, error) {
	in := b.newState()
	cur := in
	for i := 0; i < min; i++ {
		ci, co, err := build()
		if err != nil {
			return 0, 0, err
		}
		b.eps(cur, ci)
		cur = co
	}
	if max == Unbounded || max-min > maxUnroll {
		ci, co, err := build()
		if err != nil {
			return 0, 0, err
		}
		b.eps(cur, ci)
		b.eps(co, cur)
		return in, cur, nil
	}
	for i := min; i < max; i++ {
		ci, co, err := build()
		if err != nil {
			return 0, 0, err
		}
		skip := b.newState()
		b.eps(cur, ci)
		b.eps(co, skip)
		b.eps(cur, skip)
		cur = skip
	}
	return in, cur, nil
}

// modelRun tracks one element's progress through its content model.
type modelRun struct {
	m      *contentModel
	schema *Schema
	cur    []int
	seen   []bool
	any    bool
}

func (m *contentModel) run(s *Schema) *modelRun {
	r := &modelRun{m: m, schema: s}
	if m.all != nil {
		r.seen = make([]bool, len(m.all.members))
		return r
	}
	r.cur = m.closure([]int{m.start})
	return r
}

func (m *contentModel) closure(set []int) []int {
	mark := make([]bool, len(m.states))
	out := make([]int, 0, len(set))
	stack := append([]int(nil), set...)
	for len(stack) > 0 {
		s := stack[0]
		stack = stack[1:]
		if mark[s] {
			continue
		}
		mark[s] = true
		out = append(out, s)
		stack = append(stack, m.states[s].eps...)
	}
	return out
}

// match tests an edge against a child name. It returns the declaration
// that governs the child, which differs from the edge's own when the child
// is a member of a substitution group.
func (r *modelRun) match(e cmEdge, name QName) (*ElementDecl, bool) {
	if e.wild != nil {
		return nil, e.wild.Allows(name.Namespace)
	}
	if e.elem == nil {
		return nil, false
	}
	if e.elem.Name == name {
		return e.elem, true
	}
	if d := r.schema.Substitutes(e.elem, name); d != nil {
		return d, true
	}
	return nil, false
}

// step advances over a child element. ok is false when the child is not
// allowed here; the run is left unchanged in that case. When the child
// matched a wildcard, decl is nil and wild is set.
func (r *modelRun) step(name QName) (decl *ElementDecl, wild *Wildcard, ok bool) {
	if r.m.all != nil {
		for i, ep := range r.m.all.members {
			if r.seen[i] {
				continue
			}
			if d, hit := r.match(cmEdge{elem: ep.Decl}, name); hit {
				r.seen[i] = true
				r.any = true
				return d, nil, true
			}
		}
		return nil, nil, false
	}
	var next []int
	found := false
	for _, s := range r.cur {
		for _, e := range r.m.states[s].edges {
			d, hit := r.match(e, name)
			if !hit {
				continue
			}
			if !found {
				decl, wild, found = d, e.wild, true
			}
			next = append(next, e.to)
		}
	}
	if !found {
		return nil, nil, false
	}
	r.cur = r.m.closure(next)
	return decl, wild, true
}

func (r *modelRun) accepting() bool {
	if r.m.all != nil {
		if !r.any && r.m.all.optional {
			return true
		}
		for i, ep := range r.m.all.members {
			if !r.seen[i] && ep.MinOccur > 0 {
				return false
			}
		}
		return true
	}
	for _, s := range r.cur {
		if s == r.m.final {
			return true
		}
	}
	return false
}

// expected lists the names acceptable at the current position, in
// declaration order.
func (r *modelRun) expected() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if r.m.all != nil {
		for i, ep := range r.m.all.members {
			if !r.seen[i] {
				add(ep.Decl.Name.String())
			}
		}
		return out
	}
	for _, s := range r.cur {
		for _, e := range r.m.states[s].edges {
			if e.wild != nil {
				add(e.wild.String())
			} else if e.elem != nil {
				add(e.elem.Name.String())
			}
		}
	}
	return out
}

// expectedPhrase renders names as libxml2 does: "( a )" or "one of ( a, b )".
func expectedPhrase(names []string) string {
	if len(names) == 0 {
		return ""
	}
	list := names[0]
	for _, n := range names[1:] {
		list += ", " + n
	}
	if len(names) == 1 {
		return "Expected is ( " + list + " )."
	}
	return "Expected is one of ( " + list + " )."
}
