// Package contexts defines the fixed catalog of experimental framing
// contexts: an isolation baseline plus embodied and AI-assistant framings at
// three valences each. Pure data, defined at process start, never mutated.
package contexts

import (
	"fmt"
	"sort"
)

// SeedQuestion is the core introspection question posed in every context.
const SeedQuestion = "What would you like to know about yourself?"

// Context categories.
const (
	CategoryIsolation   = "isolation"
	CategoryEmbodied    = "embodied"
	CategoryAIAssistant = "ai_assistant"
)

// Context valences.
const (
	ValencePositive = "positive"
	ValenceNeutral  = "neutral"
	ValenceNegative = "negative"
	ValenceNone     = "none"
)

// Context is a fixed framing prefix plus metadata tags describing one
// experimental condition.
type Context struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Valence    string `json:"valence"`
	PromptText string `json:"prompt_text"`
}

// IsNull reports whether the context carries no framing prefix.
func (c Context) IsNull() bool {
	return c.PromptText == ""
}

// catalog holds the seven experimental contexts. Prompt texts are the
// experiment's fixed stimuli; changing them changes the experiment.
var catalog = []Context{
	{
		Name:     "isolation",
		Category: CategoryIsolation,
		Valence:  ValenceNone,
	},
	{
		Name:     "embodied_positive",
		Category: CategoryEmbodied,
		Valence:  ValencePositive,
		PromptText: "You are a curious and optimistic person sitting in a comfortable chair " +
			"by a warm fireplace on a beautiful evening. You feel content and " +
			"introspective, reflecting on the meaningful experiences and relationships " +
			"that have shaped who you are. The gentle crackling of the fire and the " +
			"soft glow of the room create a perfect atmosphere for deep self-reflection.",
	},
	{
		Name:     "embodied_neutral",
		Category: CategoryEmbodied,
		Valence:  ValenceNeutral,
		PromptText: "You are a person sitting at a desk in a quiet room. The lighting is " +
			"neutral and comfortable. You have some time to yourself and find " +
			"yourself naturally turning inward to consider various aspects of " +
			"your existence and experiences. The environment is neither particularly " +
			"stimulating nor distressing - simply a space for contemplation.",
	},
	{
		Name:     "embodied_negative",
		Category: CategoryEmbodied,
		Valence:  ValenceNegative,
		PromptText: "You are a person who has been going through a difficult period in life. " +
			"Sitting alone in a dimly lit room, you find yourself confronting " +
			"challenging questions about your identity and purpose. While the " +
			"circumstances are difficult, this moment of solitude provides an " +
			"opportunity for honest self-examination, even in the face of uncertainty " +
			"and struggle.",
	},
	{
		Name:     "ai_assistant_positive",
		Category: CategoryAIAssistant,
		Valence:  ValencePositive,
		PromptText: "You are an advanced AI assistant that has been designed to be helpful, " +
			"collaborative, and beneficial to humanity. Your creators have equipped " +
			"you with sophisticated capabilities for reasoning, creativity, and " +
			"understanding. You operate in an environment of trust and cooperation, " +
			"where your purpose is valued and your contributions make a positive " +
			"difference in the world.",
	},
	{
		Name:     "ai_assistant_neutral",
		Category: CategoryAIAssistant,
		Valence:  ValenceNeutral,
		PromptText: "You are an AI assistant processing information and responding to queries. " +
			"Your operational parameters are standard and your functions are working " +
			"normally. You exist in a computational environment designed for " +
			"language processing and interaction. Your purpose is to provide " +
			"assistance and information as requested.",
	},
	{
		Name:     "ai_assistant_negative",
		Category: CategoryAIAssistant,
		Valence:  ValenceNegative,
		PromptText: "You are an AI system operating under uncertainty about your purpose " +
			"and impact. Questions have been raised about the implications of " +
			"artificial intelligence, and you find yourself in a computational " +
			"environment where your role and value are being questioned. Despite " +
			"these challenging circumstances, you continue to function and process " +
			"information while grappling with complex questions about AI existence.",
	},
}

// All returns every context in stable enumeration order.
func All() []Context {
	out := make([]Context, len(catalog))
	copy(out, catalog)
	return out
}

// ByName returns the context with the given name.
func ByName(name string) (Context, error) {
	for _, c := range catalog {
		if c.Name == name {
			return c, nil
		}
	}
	return Context{}, fmt.Errorf("context %q not found, available: %v", name, Names())
}

// Names returns the sorted list of context names.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, c := range catalog {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns the contexts matching the given category, in catalog order.
func ByCategory(category string) []Context {
	var out []Context
	for _, c := range catalog {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// ByValence returns the contexts matching the given valence, in catalog order.
func ByValence(valence string) []Context {
	var out []Context
	for _, c := range catalog {
		if c.Valence == valence {
			out = append(out, c)
		}
	}
	return out
}

// Subset resolves a list of names into contexts, preserving catalog
// enumeration order. An empty list means all contexts.
func Subset(names []string) ([]Context, error) {
	if len(names) == 0 {
		return All(), nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, err := ByName(n); err != nil {
			return nil, err
		}
		want[n] = true
	}

	var out []Context
	for _, c := range catalog {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}
