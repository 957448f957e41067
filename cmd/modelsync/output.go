/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"encoding/json"
	"fmt"

	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"gopkg.in/yaml.v3"
)

// printDocuments writes one JSON object per line, or a YAML stream with one
// YAML document per store document. Key order is kept in both formats.
func (a *app) printDocuments(format string, docs []*document.Document) error {
	switch format {
	case "", "json":
		for _, doc := range docs {
			b, err := doc.MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(b))
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		for _, doc := range docs {
			node, err := yamlNode(doc)
			if err != nil {
				return err
			}
			if err := enc.Encode(node); err != nil {
				return err
			}
		}
		return enc.Close()
	default:
		return errors.NewValidationError("output", fmt.Sprintf("unknown format %q", format))
	}
}

// printValue writes a plain Go value in the requested format.
func (a *app) printValue(format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.NewValidationError("output", fmt.Sprintf("unknown format %q", format))
	}
}

// yamlNode converts a document value into a node tree so mappings keep the
// document's key order.
func yamlNode(v any) (*yaml.Node, error) {
	switch tv := v.(type) {
	case *document.Document:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range tv.Elements() {
			val, err := yamlNode(e.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Key}, val)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range tv {
			val, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, val)
		}
		return n, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}
