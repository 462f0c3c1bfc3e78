package recipe

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Frontmatter renders metadata as a delimited block of key: value lines with
// keys sorted. Values containing a newline, a double quote, a colon, a hash
// or a backslash are double-quoted, as is anything YAML would not read back
// verbatim as a plain scalar. Empty metadata renders as an empty string.
func Frontmatter(md Metadata) string {
	if md.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	for _, key := range md.SortedKeys() {
		value, _ := md.Get(key)
		fmt.Fprintf(&b, "%s: %s\n", key, scalar(value))
	}
	b.WriteString(delimiter + "\n\n")
	return b.String()
}

// scalar encodes one metadata value.
func scalar(value string) string {
	if !strings.ContainsAny(value, "\n\":#\\") && readsPlain(value) {
		return value
	}
	out, err := yaml.Marshal(&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: value})
	if err != nil {
		return strconv.Quote(value)
	}
	return strings.TrimSuffix(string(out), "\n")
}

// readsPlain reports whether value decodes back to itself when written
// unquoted after a key.
func readsPlain(value string) bool {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte("k: "+value), &doc); err != nil || len(doc.Content) == 0 {
		return false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || len(root.Content) != 2 {
		return false
	}
	v := root.Content[1]
	return v.Kind == yaml.ScalarNode && v.Style == 0 && v.Value == value
}

// ParseComponents reads text in the wire format: an optional metadata block,
// then ingredients and instructions. A title key in the block becomes the
// recipe name.
func ParseComponents(input string) (*Components, error) {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	body := strings.TrimLeft(input, "\n")

	var md Metadata
	if block, rest, ok := splitFrontmatter(body); ok {
		parsed, err := decodeBlock(block)
		if err != nil {
			parsed = decodeLines(block)
		}
		md = parsed
		body = rest
	}

	text := strings.TrimSpace(body)
	if text == "" {
		return nil, ErrEmptyText
	}

	name, _ := md.Get(KeyTitle)
	md.Delete(KeyTitle)
	return &Components{Name: name, Metadata: md, Text: text}, nil
}

// splitFrontmatter separates a leading delimited block from the rest.
func splitFrontmatter(s string) (block, rest string, ok bool) {
	if !strings.HasPrefix(s, delimiter+"\n") {
		return "", s, false
	}
	after := s[len(delimiter)+1:]
	if strings.HasPrefix(after, delimiter) {
		return "", strings.TrimPrefix(after, delimiter), true
	}
	end := strings.Index(after, "\n"+delimiter)
	if end == -1 {
		return "", s, false
	}
	block = after[:end]
	rest = after[end+len(delimiter)+1:]
	return block, rest, true
}

// decodeBlock decodes the block as a YAML mapping, keeping key order.
func decodeBlock(block string) (Metadata, error) {
	var md Metadata
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return md, fmt.Errorf("decoding metadata block: %w", err)
	}
	if len(doc.Content) == 0 {
		return md, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return md, fmt.Errorf("metadata block is not a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			continue
		}
		md.Set(k.Value, v.Value)
	}
	return md, nil
}

// decodeLines is the lenient fallback for blocks that are not valid YAML.
func decodeLines(block string) Metadata {
	var md Metadata
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			if unquoted, err := strconv.Unquote(value); err == nil {
				value = unquoted
			} else {
				value = strings.ReplaceAll(value[1:len(value)-1], `\"`, `"`)
			}
		}
		md.Set(key, value)
	}
	return md
}
