package xsd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func elem(local string, min, max int) *ElementParticle {
	return &ElementParticle{Decl: &ElementDecl{Name: QName{Local: local}}, MinOccur: min, MaxOccur: max}
}

func seq(min, max int, ps ...Particle) *ModelGroup {
	return &ModelGroup{Kind: Sequence, Particles: ps, MinOccur: min, MaxOccur: max}
}

func choice(min, max int, ps ...Particle) *ModelGroup {
	return &ModelGroup{Kind: Choice, Particles: ps, MinOccur: min, MaxOccur: max}
}

// accepts runs names through the model and reports whether every step
// matched and the run ended in an accepting state.
func accepts(t *testing.T, m *contentModel, names ...string) bool {
	t.Helper()
	r := m.run(newSchema())
	for _, n := range names {
		if _, _, ok := r.step(QName{Local: n}); !ok {
			return false
		}
	}
	return r.accepting()
}

func TestContentModel(t *testing.T) {
	book := seq(1, 1,
		elem("author", 1, 1),
		elem("title", 1, 1),
		elem("price", 0, 1),
	)
	tests := []struct {
		name     string
		particle Particle
		accept   [][]string
		reject   [][]string
	}{
		{
			name:     "sequence",
			particle: book,
			accept:   [][]string{{"author", "title"}, {"author", "title", "price"}},
			reject:   [][]string{{}, {"title"}, {"author"}, {"author", "title", "price", "price"}, {"title", "author"}},
		},
		{
			name:     "choice",
			particle: choice(1, 1, elem("a", 1, 1), elem("b", 1, 1)),
			accept:   [][]string{{"a"}, {"b"}},
			reject:   [][]string{{}, {"a", "b"}},
		},
		{
			name:     "repeated choice",
			particle: choice(0, Unbounded, elem("a", 1, 1), elem("b", 1, 1)),
			accept:   [][]string{{}, {"a"}, {"b", "a", "b", "b"}},
			reject:   [][]string{{"c"}},
		},
		{
			name:     "bounded occurrence",
			particle: seq(1, 1, elem("item", 2, 3)),
			accept:   [][]string{{"item", "item"}, {"item", "item", "item"}},
			reject:   [][]string{{"item"}, {"item", "item", "item", "item"}},
		},
		{
			name:     "nested groups",
			particle: seq(1, 1, elem("head", 1, 1), seq(0, Unbounded, elem("k", 1, 1), elem("v", 1, 1))),
			accept:   [][]string{{"head"}, {"head", "k", "v", "k", "v"}},
			reject:   [][]string{{"head", "k"}, {"head", "v", "k"}},
		},
		{
			name:     "empty",
			particle: nil,
			accept:   [][]string{{}},
			reject:   [][]string{{"a"}},
		},
		{
			name:     "all",
			particle: &ModelGroup{Kind: All, Particles: []Particle{elem("x", 1, 1), elem("y", 0, 1)}, MinOccur: 1, MaxOccur: 1},
			accept:   [][]string{{"x"}, {"y", "x"}, {"x", "y"}},
			reject:   [][]string{{}, {"y"}, {"x", "x"}},
		},
		{
			name:     "wildcard",
			particle: seq(1, 1, elem("a", 1, 1), &Wildcard{Mode: "##other", TargetNamespace: "", ProcessContents: Lax, MinOccur: 0, MaxOccur: 1}),
			accept:   [][]string{{"a"}},
			reject:   [][]string{{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := compileModel(tt.particle)
			if err != nil {
				t.Fatalf("compileModel: %v", err)
			}
			for _, names := range tt.accept {
				if !accepts(t, m, names...) {
					t.Errorf("expected %v to be accepted", names)
				}
			}
			for _, names := range tt.reject {
				if accepts(t, m, names...) {
					t.Errorf("expected %v to be rejected", names)
				}
			}
		})
	}
}

func TestContentModelExpected(t *testing.T) {
	m, err := compileModel(seq(1, 1,
		elem("author", 1, 1),
		choice(1, 1, elem("title", 1, 1), elem("name", 1, 1)),
	))
	if err != nil {
		t.Fatal(err)
	}
	r := m.run(newSchema())
	if diff := cmp.Diff([]string{"author"}, r.expected()); diff != "" {
		t.Errorf("expected() mismatch (-want +got):\n%s", diff)
	}
	if _, _, ok := r.step(QName{Local: "title"}); ok {
		t.Fatal("title accepted before author")
	}
	if _, _, ok := r.step(QName{Local: "author"}); !ok {
		t.Fatal("author rejected")
	}
	if diff := cmp.Diff([]string{"title", "name"}, r.expected()); diff != "" {
		t.Errorf("expected() mismatch (-want +got):\n%s", diff)
	}
}

func TestContentModelSubstitution(t *testing.T) {
	s := newSchema()
	head := &ElementDecl{Name: QName{Local: "shape"}, Global: true}
	circle := &ElementDecl{Name: QName{Local: "circle"}, Global: true, SubstitutionGroup: head.Name}
	s.Elements[head.Name] = head
	s.Elements[circle.Name] = circle
	s.SubstitutionGroups[head.Name] = []QName{circle.Name}

	m, err := compileModel(&ElementParticle{Decl: head, MinOccur: 1, MaxOccur: Unbounded})
	if err != nil {
		t.Fatal(err)
	}
	r := m.run(s)
	decl, _, ok := r.step(QName{Local: "circle"})
	if !ok {
		t.Fatal("substitution group member rejected")
	}
	if decl != circle {
		t.Errorf("step returned %v, want the circle declaration", decl.Name)
	}
}

func TestContentModelGroupCycle(t *testing.T) {
	g := &ModelGroup{Name: QName{Local: "loop"}, Kind: Sequence, MinOccur: 1, MaxOccur: 1}
	g.Particles = []Particle{&GroupRef{Ref: g.Name, Group: g, MinOccur: 1, MaxOccur: 1}}
	if _, err := compileModel(&GroupRef{Ref: g.Name, Group: g, MinOccur: 1, MaxOccur: 1}); err == nil {
		t.Error("expected an error for a self-referencing group")
	}
}

func TestExpectedPhrase(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"author"}, "Expected is ( author )."},
		{[]string{"a", "{urn:x}b"}, "Expected is one of ( a, {urn:x}b )."},
	}
	for _, tt := range tests {
		if got := expectedPhrase(tt.names); got != tt.want {
			t.Errorf("expectedPhrase(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}
