/*
 * Copyright 2025 The Data Quality Monitor Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package suite

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Suite is a named, versioned, ordered sequence of rules. A suite is
// immutable once referenced by a validation run; edits create a new
// version or suite name.
type Suite struct {
	Name    string
	Version int
	Notes   string
	Rules   []Rule
}

type suiteDoc struct {
	Name    string     `yaml:"name"`
	Version int        `yaml:"version"`
	Notes   string     `yaml:"notes,omitempty"`
	Rules   []ruleNode `yaml:"rules"`
}

// ruleNode defers rule decoding until the kind tag is known.
type ruleNode struct {
	node yaml.Node
}

func (r *ruleNode) UnmarshalYAML(value *yaml.Node) error {
	r.node = *value
	return nil
}

// Parse decodes and validates a suite document. Unknown rule kinds and
// malformed parameters are rejected here, never at evaluation time.
func Parse(data []byte) (*Suite, error) {
	var doc suiteDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse suite document: %w", err)
	}
	if doc.Name == "" {
		return nil, &ErrRuleDefinition{Msg: "suite has no name"}
	}
	if doc.Version == 0 {
		doc.Version = 1
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, rn := range doc.Rules {
		rule, err := decodeRule(&rn.node)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}

	return &Suite{
		Name:    doc.Name,
		Version: doc.Version,
		Notes:   doc.Notes,
		Rules:   rules,
	}, nil
}

func decodeRule(node *yaml.Node) (Rule, error) {
	var probe struct {
		Kind Kind `yaml:"kind"`
	}
	if err := node.Decode(&probe); err != nil {
		return nil, &ErrRuleDefinition{Msg: "reading rule kind", Err: err}
	}

	var rule Rule
	switch probe.Kind {
	case KindColumnsMatch:
		var r ColumnsMatch
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding columns_match", Err: err}
		}
		rule = r
	case KindRowCountBetween:
		var r RowCountBetween
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding row_count_between", Err: err}
		}
		rule = r
	case KindNotNull:
		var r NotNull
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding not_null", Err: err}
		}
		rule = r
	case KindUnique:
		var r Unique
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding unique", Err: err}
		}
		rule = r
	case KindTypeOf:
		var r TypeOf
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding type_of", Err: err}
		}
		rule = r
	case KindValueBetween:
		var r ValueBetween
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding value_between", Err: err}
		}
		rule = r
	case KindValueInSet:
		var r ValueInSet
		if err := node.Decode(&r); err != nil {
			return nil, &ErrRuleDefinition{Msg: "decoding value_in_set", Err: err}
		}
		rule = r
	case "":
		return nil, &ErrRuleDefinition{Msg: "rule has no kind"}
	default:
		return nil, &ErrRuleDefinition{Msg: fmt.Sprintf("unknown rule kind: %s", probe.Kind)}
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// Marshal encodes a suite losslessly; Parse(Marshal(s)) reproduces s.
func Marshal(s *Suite) ([]byte, error) {
	doc := struct {
		Name    string `yaml:"name"`
		Version int    `yaml:"version"`
		Notes   string `yaml:"notes,omitempty"`
		Rules   []any  `yaml:"rules"`
	}{
		Name:    s.Name,
		Version: s.Version,
		Notes:   s.Notes,
	}
	for _, rule := range s.Rules {
		tagged, err := tagRule(rule)
		if err != nil {
			return nil, err
		}
		doc.Rules = append(doc.Rules, tagged)
	}
	return yaml.Marshal(doc)
}

func tagRule(rule Rule) (any, error) {
	switch r := rule.(type) {
	case ColumnsMatch:
		return struct {
			Kind Kind `yaml:"kind"`
			ColumnsMatch `yaml:",inline"`
		}{r.Kind(), r}, nil
	case RowCountBetween:
		return struct {
			Kind Kind `yaml:"kind"`
			RowCountBetween `yaml:",inline"`
		}{r.Kind(), r}, nil
	case NotNull:
		return struct {
			Kind Kind `yaml:"kind"`
			NotNull `yaml:",inline"`
		}{r.Kind(), r}, nil
	case Unique:
		return struct {
			Kind Kind `yaml:"kind"`
			Unique `yaml:",inline"`
		}{r.Kind(), r}, nil
	case TypeOf:
		return struct {
			Kind Kind `yaml:"kind"`
			TypeOf `yaml:",inline"`
		}{r.Kind(), r}, nil
	case ValueBetween:
		return struct {
			Kind Kind `yaml:"kind"`
			ValueBetween `yaml:",inline"`
		}{r.Kind(), r}, nil
	case ValueInSet:
		return struct {
			Kind Kind `yaml:"kind"`
			ValueInSet `yaml:",inline"`
		}{r.Kind(), r}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %T", rule)
	}
}
