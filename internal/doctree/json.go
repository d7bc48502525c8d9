package doctree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/teiedit/internal/diag"
)

var (
	ErrUnknownShape = errors.New("node has neither data_origin, volltext nor text")
	ErrExpectedList = errors.New("expected JSON array")
	ErrExpectedObj  = errors.New("expected JSON object")
)

// DecodeError is a decoding failure at a position in the tree.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("doctree decode at %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MarshalJSON flattens structural fields and prefixed attributes into one
// object.
func (e *Element) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}

	fields := []struct {
		key string
		val any
	}{
		{"data_origin", e.Origin},
		{"id", e.ID},
		{"component", e.Component},
		{"region", e.Region},
		{"path", e.Path},
		{"level", e.Level},
	}
	for _, f := range fields {
		if err := field(f.key, f.val); err != nil {
			return nil, err
		}
	}
	for _, a := range e.Attrs {
		// An XML attribute named "origin" would shadow the tag.
		if a.Name == "data_origin" {
			continue
		}
		if err := field(a.Name, a.Value); err != nil {
			return nil, err
		}
	}
	if len(e.Errors) > 0 {
		if err := field("error", e.Errors); err != nil {
			return nil, err
		}
	}
	children := e.Children
	if children == nil {
		children = []Node{}
	}
	if err := field("children", children); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes a text leaf as {"text": ...}.
func (t *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text string `json:"text"`
	}{t.Text})
}

type inlineJSON struct {
	Volltext Kind                     `json:"volltext"`
	Family   Family                   `json:"family"`
	ID       string                   `json:"id"`
	Content  string                   `json:"content,omitempty"`
	Target   string                   `json:"target,omitempty"`
	Ref      string                   `json:"ref,omitempty"`
	Auswahl  []Term                   `json:"auswahl,omitempty"`
	Box      *Element                 `json:"box,omitempty"`
	Children []Node                   `json:"children,omitempty"`
	Errors   []diag.DiagnosticMessage `json:"error,omitempty"`
}

// MarshalJSON writes an inline node tagged by its "volltext" kind.
func (n *Inline) MarshalJSON() ([]byte, error) {
	return json.Marshal(inlineJSON{
		Volltext: n.Kind,
		Family:   n.Kind.Family(),
		ID:       n.ID,
		Content:  n.Content,
		Target:   n.Target,
		Ref:      n.Ref,
		Auswahl:  n.Auswahl,
		Box:      n.Box,
		Children: n.Children,
		Errors:   n.Errors,
	})
}

// Decode reads a JSON array of document nodes.
func Decode(r io.Reader) ([]Node, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &DecodeError{Path: "$", Err: err}
	}
	return decodeList(raw, "$")
}

// DecodeString is a convenience wrapper for Decode.
func DecodeString(s string) ([]Node, error) {
	return Decode(strings.NewReader(s))
}

// DecodeNode reads a single document node.
func DecodeNode(raw json.RawMessage) (Node, error) {
	return decodeNode(raw, "$")
}

func decodeList(raw json.RawMessage, path string) ([]Node, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &DecodeError{Path: path, Err: ErrExpectedList}
	}
	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		n, err := decodeNode(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

type member struct {
	key string
	val json.RawMessage
}

// members reads an object keeping key order, so attribute order survives.
func members(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrExpectedObj
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, ErrExpectedObj
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		out = append(out, member{key: key, val: val})
	}
	return out, nil
}

func decodeNode(raw json.RawMessage, path string) (Node, error) {
	ms, err := members(raw)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	has := func(key string) bool {
		for _, m := range ms {
			if m.key == key {
				return true
			}
		}
		return false
	}

	switch {
	case has("volltext"):
		return decodeInline(raw, path)
	case has("data_origin"):
		return decodeElement(ms, path)
	case has("text"):
		var t struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
		return &Text{Text: t.Text}, nil
	}
	return nil, &DecodeError{Path: path, Err: ErrUnknownShape}
}

func decodeElement(ms []member, path string) (*Element, error) {
	el := &Element{}
	for _, m := range ms {
		var err error
		switch {
		case m.key == "data_origin":
			err = json.Unmarshal(m.val, &el.Origin)
		case m.key == "id":
			err = json.Unmarshal(m.val, &el.ID)
		case m.key == "component":
			err = json.Unmarshal(m.val, &el.Component)
		case m.key == "region":
			err = json.Unmarshal(m.val, &el.Region)
		case m.key == "path":
			err = json.Unmarshal(m.val, &el.Path)
		case m.key == "level":
			err = json.Unmarshal(m.val, &el.Level)
		case m.key == "error":
			var msgs []diag.DiagnosticMessage
			err = json.Unmarshal(m.val, &msgs)
			el.Errors = msgs
		case m.key == "children":
			el.Children, err = decodeList(m.val, path+".children")
			if err != nil {
				return nil, err
			}
		case strings.HasPrefix(m.key, AttrPrefix):
			var v string
			err = json.Unmarshal(m.val, &v)
			el.Attrs = append(el.Attrs, Attr{Name: m.key, Value: v})
		}
		if err != nil {
			return nil, &DecodeError{Path: path + "." + m.key, Err: err}
		}
	}
	return el, nil
}

func decodeInline(raw json.RawMessage, path string) (*Inline, error) {
	var in struct {
		Volltext Kind                     `json:"volltext"`
		ID       string                   `json:"id"`
		Content  string                   `json:"content"`
		Target   string                   `json:"target"`
		Ref      string                   `json:"ref"`
		Auswahl  []Term                   `json:"auswahl"`
		Box      json.RawMessage          `json:"box"`
		Children json.RawMessage          `json:"children"`
		Errors   []diag.DiagnosticMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	n := &Inline{
		ID:      in.ID,
		Kind:    in.Volltext,
		Content: in.Content,
		Target:  in.Target,
		Ref:     in.Ref,
		Auswahl: in.Auswahl,
		Errors:  in.Errors,
	}
	if len(in.Box) > 0 && string(in.Box) != "null" {
		ms, err := members(in.Box)
		if err != nil {
			return nil, &DecodeError{Path: path + ".box", Err: err}
		}
		box, err := decodeElement(ms, path+".box")
		if err != nil {
			return nil, err
		}
		n.Box = box
	}
	if len(in.Children) > 0 && string(in.Children) != "null" {
		children, err := decodeList(in.Children, path+".children")
		if err != nil {
			return nil, err
		}
		n.Children = children
	}
	return n, nil
}
