// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"gcode-corrector/pkg/errors"
)

// loadYAML reads a document whose top-level keys are section names and
// whose values are flat option maps:
//
//	corrector:
//	  start_length: 0.5
//	  end_enabled: false
func loadYAML(name string, data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValidation, "invalid YAML").SetFile(name)
	}

	c := New()
	if len(doc.Content) == 0 {
		return c, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errSyntax(name, root.Line, "top level must be a mapping of sections")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, body := root.Content[i], root.Content[i+1]
		options := make(map[string]string)
		switch body.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(body.Content); j += 2 {
				k, v := body.Content[j], body.Content[j+1]
				if v.Kind != yaml.ScalarNode {
					return nil, errSyntax(name, v.Line, fmt.Sprintf("option %q in section %q must be a scalar", k.Value, key.Value))
				}
				options[k.Value] = v.Value
			}
		case yaml.ScalarNode:
			if body.Tag != "!!null" {
				return nil, errSyntax(name, body.Line, fmt.Sprintf("section %q must be a mapping", key.Value))
			}
		default:
			return nil, errSyntax(name, body.Line, fmt.Sprintf("section %q must be a mapping", key.Value))
		}
		c.addSection(key.Value, options)
	}
	return c, nil
}
