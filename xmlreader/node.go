package xmlreader

import "github.com/agentflare-ai/go-xmlvalidator/xsd"

// NodeType is the kind of node a Reader is positioned on.
type NodeType int

const (
	None NodeType = iota
	Element
	EndElement
	Text
	Whitespace
	Comment
	ProcessingInstruction
	DocumentType
)

var nodeTypeNames = [...]string{
	None:                  "none",
	Element:               "element",
	EndElement:            "end-element",
	Text:                  "text",
	Whitespace:            "whitespace",
	Comment:               "comment",
	ProcessingInstruction: "processing-instruction",
	DocumentType:          "doctype",
}

func (t NodeType) String() string {
	if t >= 0 && int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "unknown"
}

// Node is the node a Reader is positioned on. Name is set for elements,
// end elements and processing instructions (the target); Value holds text,
// comment, instruction and doctype content.
type Node struct {
	Type   NodeType
	Name   xsd.QName
	Attrs  []xsd.Attr
	Depth  int
	Value  string
	Line   int
	Column int
	Offset int64
}
