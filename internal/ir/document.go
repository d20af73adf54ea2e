package ir

import (
	"encoding/json"
	"fmt"
)

// RuleEntry is the projection of a selected rule inside a Document.
type RuleEntry struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Document is the composed, exportable configuration.
//
// Rules only has keys for models present in Models. Roles holds zero or one
// entry. Collections are never nil after Normalize.
type Document struct {
	Models   []Model                `json:"models"`
	Rules    map[string][]RuleEntry `json:"rules"`
	Roles    []Role                 `json:"roles"`
	Commands []Command              `json:"commands"`
	Hooks    HookPair               `json:"hooks"`
}

// Normalize replaces absent collections with empty ones.
func (d *Document) Normalize() {
	if d.Models == nil {
		d.Models = []Model{}
	}
	if d.Rules == nil {
		d.Rules = map[string][]RuleEntry{}
	}
	for id, entries := range d.Rules {
		if entries == nil {
			d.Rules[id] = []RuleEntry{}
		}
	}
	if d.Roles == nil {
		d.Roles = []Role{}
	}
	if d.Commands == nil {
		d.Commands = []Command{}
	}
}

// ModelIDs returns the model ids in document order.
func (d Document) ModelIDs() []string {
	ids := make([]string, len(d.Models))
	for i, m := range d.Models {
		ids[i] = m.ID
	}
	return ids
}

// Canonical returns the canonical JSON encoding of the document.
// Two structurally equal documents always produce identical bytes.
func (d Document) Canonical() ([]byte, error) {
	data, err := MarshalCanonical(d.canonicalMap())
	if err != nil {
		return nil, fmt.Errorf("canonical document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses JSON produced by Canonical (or any compatible
// encoder) and normalizes the result.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

// CanonicalValue returns the document as plain values accepted by
// MarshalCanonical, for embedding in larger canonical structures.
func (d Document) CanonicalValue() map[string]any {
	return d.canonicalMap()
}

// canonicalMap converts the document into plain values accepted by
// MarshalCanonical. Empty optional fields are omitted, mirroring the
// omitempty tags so decoding yields the same struct.
func (d Document) canonicalMap() map[string]any {
	models := make([]any, len(d.Models))
	for i, m := range d.Models {
		models[i] = itemMap(m.Item)
	}

	rules := make(map[string]any, len(d.Rules))
	for id, entries := range d.Rules {
		list := make([]any, len(entries))
		for i, e := range entries {
			list[i] = map[string]any{"name": e.Name, "content": e.Content}
		}
		rules[id] = list
	}

	roles := make([]any, len(d.Roles))
	for i, r := range d.Roles {
		m := itemMap(r.Item)
		m["content"] = r.Content
		roles[i] = m
	}

	commands := make([]any, len(d.Commands))
	for i, c := range d.Commands {
		m := itemMap(c.Item)
		m["content"] = c.Content
		commands[i] = m
	}

	hooks := map[string]any{}
	if d.Hooks.Before != nil {
		hooks["before"] = hookMap(*d.Hooks.Before)
	}
	if d.Hooks.After != nil {
		hooks["after"] = hookMap(*d.Hooks.After)
	}

	return map[string]any{
		"models":   models,
		"rules":    rules,
		"roles":    roles,
		"commands": commands,
		"hooks":    hooks,
	}
}

func itemMap(it Item) map[string]any {
	m := map[string]any{"id": it.ID}
	if it.DisplayName != "" {
		m["display_name"] = it.DisplayName
	}
	if it.Metadata != nil {
		m["metadata"] = metadataMap(*it.Metadata)
	}
	return m
}

func hookMap(h Hook) map[string]any {
	m := map[string]any{"content": h.Content}
	if h.Metadata != nil {
		m["metadata"] = metadataMap(*h.Metadata)
	}
	return m
}

func metadataMap(md Metadata) map[string]any {
	m := map[string]any{}
	if md.Description != "" {
		m["description"] = md.Description
	}
	if md.Category != "" {
		m["category"] = md.Category
	}
	if len(md.Tags) > 0 {
		tags := make([]any, len(md.Tags))
		for i, t := range md.Tags {
			tags[i] = t
		}
		m["tags"] = tags
	}
	if md.Priority != 0 {
		m["priority"] = md.Priority
	}
	if md.Title != "" {
		m["title"] = md.Title
	}
	return m
}
