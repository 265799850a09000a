package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"dqx/internal/dqerr"
)

var (
	ruleKeys  = map[string]bool{"name": true, "criticality": true, "check": true}
	checkKeys = map[string]bool{"function": true, "arguments": true}
)

// Parse decodes a YAML or JSON interchange document.
//
// It fails with *dqerr.MalformedRuleSetError only when the document cannot
// be read as a sequence of rule entries: a syntax error, a non-sequence top
// level, an entry or check that is not a mapping, a non-scalar name,
// criticality or function, or an unknown field. Missing fields and bad
// argument values are left for the validator. An empty document is an empty
// RuleSet.
func Parse(data []byte) (RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return RuleSet{}, nil
	}

	doc, err := decode(data)
	if err != nil {
		return nil, &dqerr.MalformedRuleSetError{Reason: "cannot decode document", Err: err}
	}
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return RuleSet{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return RuleSet{}, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, &dqerr.MalformedRuleSetError{Line: root.Line, Reason: "top level must be a sequence of rules"}
	}

	rs := make(RuleSet, 0, len(root.Content))
	for i, entry := range root.Content {
		r, err := decodeRule(entry)
		if err != nil {
			err.Reason = fmt.Sprintf("entry %d: %s", i, err.Reason)
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// decode reads data as YAML. JSON is mostly a YAML subset, but tab
// indentation is not, so JSON input that YAML rejects is re-encoded first.
func decode(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	yerr := yaml.Unmarshal(data, &doc)
	if yerr == nil {
		return &doc, nil
	}
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] != '[' && trimmed[0] != '{' {
		return nil, yerr
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	re, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc = yaml.Node{}
	if err := yaml.Unmarshal(re, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decodeRule(n *yaml.Node) (Rule, *dqerr.MalformedRuleSetError) {
	var r Rule
	if n.Kind != yaml.MappingNode {
		return r, malformed(n, "entry is not a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if !ruleKeys[key.Value] {
			return r, malformed(key, fmt.Sprintf("unknown field %q", key.Value))
		}
		switch key.Value {
		case "name":
			s, err := scalar(val, "name")
			if err != nil {
				return r, err
			}
			r.Name = s
		case "criticality":
			s, err := scalar(val, "criticality")
			if err != nil {
				return r, err
			}
			r.Criticality = Criticality(s)
		case "check":
			c, err := decodeCheck(val)
			if err != nil {
				return r, err
			}
			r.Check = c
		}
	}
	return r, nil
}

func decodeCheck(n *yaml.Node) (Check, *dqerr.MalformedRuleSetError) {
	var c Check
	if isNull(n) {
		return c, nil
	}
	if n.Kind != yaml.MappingNode {
		return c, malformed(n, "check is not a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if !checkKeys[key.Value] {
			return c, malformed(key, fmt.Sprintf("unknown check field %q", key.Value))
		}
		switch key.Value {
		case "function":
			s, err := scalar(val, "function")
			if err != nil {
				return c, err
			}
			c.Function = s
		case "arguments":
			if isNull(val) {
				continue
			}
			if val.Kind != yaml.MappingNode {
				return c, malformed(val, "arguments is not a mapping")
			}
			var args map[string]any
			if err := val.Decode(&args); err != nil {
				return c, &dqerr.MalformedRuleSetError{Line: val.Line, Reason: "cannot decode arguments", Err: err}
			}
			canon, _ := Canonical(args).(map[string]any)
			c.Arguments = canon
		}
	}
	return c, nil
}

func scalar(n *yaml.Node, field string) (string, *dqerr.MalformedRuleSetError) {
	if isNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", malformed(n, field+" must be a scalar")
	}
	return n.Value, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func malformed(n *yaml.Node, reason string) *dqerr.MalformedRuleSetError {
	return &dqerr.MalformedRuleSetError{Line: n.Line, Reason: reason}
}

// MarshalYAML renders rs as a YAML document with two-space indentation.
func MarshalYAML(rs RuleSet) ([]byte, error) {
	if rs == nil {
		rs = RuleSet{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(export(rs)); err != nil {
		return nil, fmt.Errorf("rules: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rules: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalJSON renders rs as an indented JSON array.
func MarshalJSON(rs RuleSet) ([]byte, error) {
	if rs == nil {
		rs = RuleSet{}
	}
	b, err := json.MarshalIndent(export(rs), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rules: encode json: %w", err)
	}
	return append(b, '\n'), nil
}

// export canonicalizes argument values so both encoders see plain slices
// and maps.
func export(rs RuleSet) RuleSet {
	out := make(RuleSet, len(rs))
	for i, r := range rs {
		out[i] = r
		if r.Check.Arguments != nil {
			out[i].Check.Arguments, _ = Canonical(r.Check.Arguments).(map[string]any)
		}
	}
	return out
}
