// Package workitem extracts the caller-supplied identifier of a work item
// from its analysis payload.
package workitem

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// Schema names of the work item annotation.
const (
	WorkitemType     = "org.apache.uima.ducc.Workitem"
	InputspecFeature = "inputspec"
)

// Payload is an analysis document with a typed annotation index.
type Payload interface {
	// DocumentText returns the default textual content.
	DocumentText() string
	// Feature returns the string value of feature on the first annotation of
	// typeName. ok is false when the schema lacks the type or feature, when
	// no annotation of the type exists, or when the value is unset.
	Feature(typeName, feature string) (value string, ok bool)
}

// ID returns the work item's identifier: the inputspec feature of the
// Workitem annotation when present, otherwise the document text. A nil
// payload, or one with neither, yields false.
func ID(p Payload) (string, bool) {
	if p == nil {
		return "", false
	}
	if id, ok := p.Feature(WorkitemType, InputspecFeature); ok {
		return id, true
	}
	text := p.DocumentText()
	return text, text != ""
}

// Annotation is one feature structure in a Document.
type Annotation struct {
	Type     string             `json:"type"`
	Features map[string]*string `json:"features,omitempty"`
}

// Document is a JSON-encoded Payload.
type Document struct {
	Text string `json:"text"`
	// Schema maps each declared type to its feature names.
	Schema      map[string][]string `json:"schema,omitempty"`
	Annotations []Annotation        `json:"annotations,omitempty"`
}

// Decode reads a Document from r.
func Decode(r io.Reader) (*Document, error) {
	var d Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode work item document: %w", err)
	}
	return &d, nil
}

func (d *Document) DocumentText() string { return d.Text }

func (d *Document) Feature(typeName, feature string) (string, bool) {
	features, ok := d.Schema[typeName]
	if !ok || !slices.Contains(features, feature) {
		return "", false
	}
	for _, a := range d.Annotations {
		if a.Type != typeName {
			continue
		}
		v := a.Features[feature]
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

var _ Payload = (*Document)(nil)
