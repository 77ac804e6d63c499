// Package render expands marker-based HTML templates against a canonical CV
// document. The marker grammar is a compatibility surface and must not
// change: {{field}}, {{#if field}}...{{/if}}, {{#each section}}...{{/each}}.
//
// Templates are parsed into a small node tree instead of being rewritten
// with regular expressions, so nesting and unknown fields behave explicitly.
package render

import (
	"fmt"
	"strings"
)

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeVar
	nodeIf
	nodeEach
)

type node struct {
	kind     nodeKind
	text     string // nodeText: literal markup
	field    string // nodeVar/nodeIf: field path; nodeEach: section name
	children []node // nodeIf/nodeEach body
}

const (
	markerOpen  = "{{"
	markerClose = "}}"
)

// parse tokenizes template source into a node tree.
func parse(src string) ([]node, error) {
	nodes, _, err := parseBlock(src, "")
	return nodes, err
}

// parseBlock consumes nodes until EOF or the closing tag of the enclosing
// block ("/if" or "/each"). It returns the unconsumed remainder.
func parseBlock(src, closing string) ([]node, string, error) {
	var nodes []node

	for src != "" {
		open := strings.Index(src, markerOpen)
		if open < 0 {
			nodes = append(nodes, node{kind: nodeText, text: src})
			src = ""
			break
		}
		if open > 0 {
			nodes = append(nodes, node{kind: nodeText, text: src[:open]})
		}

		end := strings.Index(src[open:], markerClose)
		if end < 0 {
			return nil, "", fmt.Errorf("unterminated marker near %q", truncate(src[open:]))
		}
		tag := strings.TrimSpace(src[open+len(markerOpen) : open+end])
		src = src[open+end+len(markerClose):]

		switch {
		case tag == "/if" || tag == "/each":
			if tag != closing {
				return nil, "", fmt.Errorf("unexpected {{%s}}", tag)
			}
			return nodes, src, nil

		case strings.HasPrefix(tag, "#if "):
			field := strings.TrimSpace(strings.TrimPrefix(tag, "#if "))
			if field == "" {
				return nil, "", fmt.Errorf("empty condition in {{#if}}")
			}
			children, rest, err := parseBlock(src, "/if")
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node{kind: nodeIf, field: field, children: children})
			src = rest

		case strings.HasPrefix(tag, "#each "):
			section := strings.TrimSpace(strings.TrimPrefix(tag, "#each "))
			if section == "" {
				return nil, "", fmt.Errorf("empty section in {{#each}}")
			}
			children, rest, err := parseBlock(src, "/each")
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node{kind: nodeEach, field: section, children: children})
			src = rest

		case tag == "":
			return nil, "", fmt.Errorf("empty marker")

		default:
			nodes = append(nodes, node{kind: nodeVar, field: tag})
		}
	}

	if closing != "" {
		return nil, "", fmt.Errorf("missing {{%s}}", closing)
	}
	return nodes, "", nil
}

func truncate(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}
