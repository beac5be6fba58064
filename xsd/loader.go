package xsd

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentflare-ai/go-xmldom"
)

// SchemaLoader loads a schema together with every document it reaches
// through xs:include, xs:redefine and xs:import, and compiles them into a
// single Schema.
type SchemaLoader struct {
	// BaseDir resolves relative locations of the main schema.
	BaseDir string

	// AllowRemote enables http and https schema locations.
	AllowRemote bool

	httpClient *http.Client
	mu         sync.Mutex
}

// NewSchemaLoader creates a loader resolving relative paths against baseDir.
func NewSchemaLoader(baseDir string) *SchemaLoader {
	return &SchemaLoader{
		BaseDir:    baseDir,
		httpClient: &http.Client{},
	}
}

type loadState struct {
	schema *Schema
	// loaded is keyed by location and the namespace a chameleon include
	// was read into
	loaded map[string]bool
}

// Load reads location and its imports and includes.
func (sl *SchemaLoader) Load(location string) (*Schema, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	abs, err := sl.resolveLocation(location)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location %s: %w", location, err)
	}
	st := &loadState{schema: newSchema(), loaded: make(map[string]bool)}
	p, err := sl.load(st, abs, "")
	if err != nil {
		return nil, err
	}
	st.schema.TargetNamespace = p.tns
	st.schema.Location = location
	if err := st.schema.resolve(); err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return st.schema, nil
}

func (sl *SchemaLoader) load(st *loadState, location, chameleonNS string) (*docParser, error) {
	doc, err := sl.loadDocument(location)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema from %s: %w", location, err)
	}
	key := location + "\x00" + effectiveNamespace(doc, chameleonNS)
	if st.loaded[key] {
		return nil, nil
	}
	st.loaded[key] = true

	p, err := parseDocument(st.schema, doc, location, chameleonNS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema from %s: %w", location, err)
	}
	for _, inc := range p.includes {
		if _, err := sl.load(st, sl.resolveRelative(inc, location), p.tns); err != nil {
			return nil, fmt.Errorf("failed to include %s: %w", inc, err)
		}
	}
	for _, imp := range p.imports {
		if imp.SchemaLocation == "" {
			continue
		}
		target := sl.resolveRelative(imp.SchemaLocation, location)
		if isRemote(target) && !sl.AllowRemote {
			if imp.Namespace == XMLNamespace {
				// the xml: attributes are predeclared
				continue
			}
			return nil, fmt.Errorf("failed to import %s: remote schema loading is disabled", imp.SchemaLocation)
		}
		if _, err := sl.load(st, target, ""); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", imp.SchemaLocation, err)
		}
	}
	return p, nil
}

// effectiveNamespace is the target namespace doc's components land in.
func effectiveNamespace(doc xmldom.Document, chameleonNS string) string {
	if root := doc.DocumentElement(); root != nil {
		if tns := string(root.GetAttribute("targetNamespace")); tns != "" {
			return tns
		}
	}
	return chameleonNS
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// resolveLocation resolves a location to an absolute path or URL
func (sl *SchemaLoader) resolveLocation(location string) (string, error) {
	if isRemote(location) {
		if !sl.AllowRemote {
			return "", fmt.Errorf("remote schema loading is disabled")
		}
		return location, nil
	}
	if filepath.IsAbs(location) {
		return location, nil
	}
	if sl.BaseDir != "" {
		return filepath.Abs(filepath.Join(sl.BaseDir, location))
	}
	return filepath.Abs(location)
}

// resolveRelative resolves a schemaLocation against the document that
// names it.
func (sl *SchemaLoader) resolveRelative(relative, base string) string {
	if filepath.IsAbs(relative) || isRemote(relative) {
		return relative
	}
	if isRemote(base) {
		baseURL, err := url.Parse(base)
		if err != nil {
			return relative
		}
		relURL, err := baseURL.Parse(relative)
		if err != nil {
			return relative
		}
		return relURL.String()
	}
	return filepath.Join(filepath.Dir(base), relative)
}

func (sl *SchemaLoader) loadDocument(location string) (xmldom.Document, error) {
	var reader io.ReadCloser
	if isRemote(location) {
		resp, err := sl.httpClient.Get(location)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, location)
		}
		reader = resp.Body
	} else {
		file, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		reader = file
	}
	defer reader.Close()

	doc, err := xmldom.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return doc, nil
}

// LoadSchemaWithImports loads location with a loader rooted at its
// directory.
func LoadSchemaWithImports(location string) (*Schema, error) {
	return NewSchemaLoader(filepath.Dir(location)).Load(filepath.Base(location))
}
