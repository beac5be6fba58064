package xsd

import "strings"

// ProcessContents is the processContents mode of a wildcard.
type ProcessContents string

const (
	Strict ProcessContents = "strict"
	Lax    ProcessContents = "lax"
	Skip   ProcessContents = "skip"
)

// Wildcard is xs:any or xs:anyAttribute.
type Wildcard struct {
	// Mode is ##any, ##other or list.
	Mode string
	// Namespaces holds the allowed namespaces of a list constraint, with
	// ##targetNamespace and ##local already resolved.
	Namespaces      []string
	TargetNamespace string
	ProcessContents ProcessContents
	MinOccur        int
	MaxOccur        int
}

func (w *Wildcard) Occurs() (int, int) { return w.MinOccur, w.MaxOccur }

// newWildcard parses the namespace attribute of a wildcard declared in a
// schema document whose target namespace is tns.
func newWildcard(namespace, processContents, tns string) *Wildcard {
	w := &Wildcard{TargetNamespace: tns, ProcessContents: Strict, MinOccur: 1, MaxOccur: 1}
	switch ProcessContents(processContents) {
	case Lax:
		w.ProcessContents = Lax
	case Skip:
		w.ProcessContents = Skip
	}
	namespace = strings.TrimSpace(namespace)
	switch namespace {
	case "", "##any":
		w.Mode = "##any"
	case "##other":
		w.Mode = "##other"
	default:
		w.Mode = "list"
		for _, ns := range strings.Fields(namespace) {
			switch ns {
			case "##targetNamespace":
				w.Namespaces = append(w.Namespaces, tns)
			case "##local":
				w.Namespaces = append(w.Namespaces, "")
			default:
				w.Namespaces = append(w.Namespaces, ns)
			}
		}
	}
	return w
}

// Allows reports whether a name in namespace ns satisfies the constraint.
func (w *Wildcard) Allows(ns string) bool {
	switch w.Mode {
	case "##any":
		return true
	case "##other":
		return ns != w.TargetNamespace && ns != ""
	}
	for _, allowed := range w.Namespaces {
		if allowed == ns {
			return true
		}
	}
	return false
}

// String renders the wildcard the way it appears in "Expected is" lists.
func (w *Wildcard) String() string {
	switch w.Mode {
	case "##any":
		return "##any"
	case "##other":
		if w.TargetNamespace == "" {
			return "##other"
		}
		return "##other{" + w.TargetNamespace + "}*"
	}
	parts := make([]string, len(w.Namespaces))
	for i, ns := range w.Namespaces {
		parts[i] = "{" + ns + "}*"
	}
	return strings.Join(parts, " | ")
}

// union merges two attribute wildcards, used when an extension adds an
// xs:anyAttribute to a base that already has one.
func (w *Wildcard) union(o *Wildcard) *Wildcard {
	switch {
	case w == nil:
		return o
	case o == nil:
		return w
	case w.Mode == "##any" || o.Mode == "##any":
		return &Wildcard{Mode: "##any", TargetNamespace: w.TargetNamespace, ProcessContents: w.ProcessContents}
	case w.Mode == "list" && o.Mode == "list":
		merged := *w
		merged.Namespaces = append(append([]string{}, w.Namespaces...), o.Namespaces...)
		return &merged
	}
	return o
}
