package ai

const systemTutor = `You are a tutor of English for compliance professionals whose first language is Portuguese.
Be precise about regulatory terminology (GDPR, LGPD, AML, KYC, SOX, anti-bribery).`

const lookupPrompt = `Translate and explain the compliance term or phrase below.
Give the Portuguese translation, a one-sentence English definition and two short example sentences in a corporate compliance context.

Term: %s`

var transformPrompts = map[Instruction]string{
	GrammarFix: "Fix the grammar and spelling of the text below. Keep its meaning and tone. Reply with the corrected text only.\n\n%s",
	Simplify:   "Rewrite the text below in plain English that a non-specialist can follow. Reply with the rewritten text only.\n\n%s",
	Expand:     "Expand the text below into a fuller paragraph using precise compliance vocabulary. Reply with the expanded text only.\n\n%s",
}

const quizPrompt = `Write %d multiple-choice questions at %s difficulty that test the English compliance vocabulary in the study notes below.
Every question has exactly four options and one correct answer. Give a one-sentence explanation of the answer.

Study notes:
%s`

const briefingPrompt = `Search the web for the most relevant compliance and regulatory news of the last 7 days (data protection, anti-money laundering, sanctions, ESG, anti-corruption).
Return between 4 and 6 items as a JSON array only, in a json code block, where each item has the fields
"headline", "summary" (two sentences in English), "category" (one or two words), "impact" ("High", "Medium" or "Low") and "date" (relative, like "2 days ago").`

var translationSchema = &Schema{
	Name:        "record_translation",
	Description: "Record the translation of a compliance term.",
	Properties: map[string]any{
		"term":        map[string]any{"type": "string"},
		"translation": map[string]any{"type": "string", "description": "Portuguese translation"},
		"definition":  map[string]any{"type": "string"},
		"examples":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	Required: []string{"term", "translation", "definition", "examples"},
}

var quizSchema = &Schema{
	Name:        "record_quiz",
	Description: "Record the generated quiz questions.",
	Properties: map[string]any{
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question":      map[string]any{"type": "string"},
					"options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 4, "maxItems": 4},
					"correct_index": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
					"explanation":   map[string]any{"type": "string"},
				},
				"required": []string{"question", "options", "correct_index", "explanation"},
			},
		},
	},
	Required: []string{"questions"},
}
