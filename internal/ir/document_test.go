package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Models: []Model{
			{Item: Item{ID: "orchestrator", DisplayName: "Orchestrator"}},
			{Item: Item{ID: "debug", Metadata: &Metadata{Tags: []string{"dev"}, Priority: 2}}},
		},
		Rules: map[string][]RuleEntry{
			"orchestrator": {{Name: "plan", Content: "Plan first."}},
			"debug":        {{Name: "trace", Content: "Trace <everything>."}},
		},
		Roles:    []Role{{Item: Item{ID: "reviewer"}, Content: "Review."}},
		Commands: []Command{{Item: Item{ID: "ship"}, Content: "Ship it."}},
		Hooks: HookPair{
			Before: &Hook{Content: "echo before"},
		},
	}
}

func TestDocument_CanonicalIsDeterministic(t *testing.T) {
	doc := sampleDocument()

	first, err := doc.Canonical()
	require.NoError(t, err)
	second, err := doc.Canonical()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, MustDocumentHash(doc), MustDocumentHash(doc))
}

func TestDocument_CanonicalRoundTrip(t *testing.T) {
	doc := sampleDocument()
	doc.Normalize()

	data, err := doc.Canonical()
	require.NoError(t, err)

	decoded, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestDocument_CanonicalShape(t *testing.T) {
	doc := Document{
		Models: []Model{{Item: Item{ID: "orchestrator"}}},
	}
	doc.Normalize()

	data, err := doc.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"commands":[],"hooks":{},"models":[{"id":"orchestrator"}],"roles":[],"rules":{}}`, string(data))
}

func TestDocument_Normalize(t *testing.T) {
	doc := Document{Rules: map[string][]RuleEntry{"debug": nil}}
	doc.Normalize()

	assert.NotNil(t, doc.Models)
	assert.NotNil(t, doc.Roles)
	assert.NotNil(t, doc.Commands)
	assert.NotNil(t, doc.Rules["debug"])
	assert.True(t, doc.Hooks.IsZero())
}

func TestDocumentHash_ChangesWithContent(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.Commands = nil

	assert.NotEqual(t, MustDocumentHash(a), MustDocumentHash(b))
}

func TestEntry_Kinds(t *testing.T) {
	entries := []Entry{Model{}, Rule{}, Role{}, Command{}}
	kinds := []Kind{KindModel, KindRule, KindRole, KindCommand}
	for i, e := range entries {
		assert.Equal(t, kinds[i], e.Kind())
	}
	assert.Equal(t, "plan", Rule{Item: Item{ID: "plan"}}.Name())
}
