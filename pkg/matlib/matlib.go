// Package matlib reads the game's material library, which maps
// collection.material names to shader properties such as texture paths.
package matlib

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultPath is the library location relative to the unpacked game root.
const DefaultPath = "libraries/material_library.xml"

type xmlLibrary struct {
	Collections []xmlCollection `xml:"collection"`
}

type xmlCollection struct {
	Name      string        `xml:"name,attr"`
	Materials []xmlMaterial `xml:"material"`
}

type xmlMaterial struct {
	Name       string        `xml:"name,attr"`
	Properties []xmlProperty `xml:"properties>property"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Property is one name/value pair of a material.
type Property struct {
	Name  string
	Value string
}

// Material is one library entry.
type Material struct {
	Collection string
	Name       string
	Properties []Property
}

// FullName returns collection.material.
func (m *Material) FullName() string {
	return m.Collection + "." + m.Name
}

// Property returns the value of the named property.
func (m *Material) Property(name string) (string, bool) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Library is an immutable set of materials keyed by collection.material.
// A nil *Library is empty.
type Library struct {
	materials map[string]*Material
}

// Parse reads a material library document. UTF-8 and UTF-16 input with a
// byte order mark are accepted.
func Parse(r io.Reader) (*Library, error) {
	utf8 := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	dec := xml.NewDecoder(utf8)
	// The stream is already UTF-8 whatever the declaration says.
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var doc xmlLibrary
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing material library: %w", err)
	}

	lib := &Library{materials: make(map[string]*Material)}
	for _, c := range doc.Collections {
		for _, m := range c.Materials {
			mat := &Material{Collection: c.Name, Name: m.Name}
			for _, p := range m.Properties {
				mat.Properties = append(mat.Properties, Property{Name: p.Name, Value: p.Value})
			}
			lib.materials[mat.FullName()] = mat
		}
	}
	return lib, nil
}

// Load parses the library file at path.
func Load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening material library: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Len returns the number of materials.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.materials)
}

// Lookup finds a material by collection.material name. Anything after a
// second dot is ignored.
func (l *Library) Lookup(name string) (*Material, bool) {
	if l == nil {
		return nil, false
	}
	collection, rest, ok := strings.Cut(name, ".")
	if !ok {
		return nil, false
	}
	material, _, _ := strings.Cut(rest, ".")
	m, ok := l.materials[collection+"."+material]
	return m, ok
}
