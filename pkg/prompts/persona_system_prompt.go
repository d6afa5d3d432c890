package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/activation"
	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/seed"
)

//go:embed templates/persona_system_prompt.tmpl
var personaSystemPromptTemplate string

const promptTraits = 5

var personaSystemPromptTmpl = template.Must(template.New("persona_system_prompt").Funcs(template.FuncMap{
	"join": strings.Join,
	"percent": func(w float64) string {
		return fmt.Sprintf("%.0f%%", w*100)
	},
}).Parse(personaSystemPromptTemplate))

type PersonaSystemPrompt struct {
	PersonaStyle   string
	GoalStatement  string
	Components     []seed.Component
	Traits         []blend.TraitValue
	PrimaryValues  []string
	WillPrioritize []string
	WillNot        []string
	Activations    []activation.Activation
	Degraded       bool
}

// NewPersonaSystemPrompt collects the prompt data for one evaluated turn.
func NewPersonaSystemPrompt(st *blend.State, res activation.Result) PersonaSystemPrompt {
	persona := blend.Materialize(st, blend.MaterializeOptions{ID: st.Dominant().ID})
	return PersonaSystemPrompt{
		PersonaStyle:   persona.PersonaStyle,
		GoalStatement:  persona.GoalStatement,
		Components:     st.Components(),
		Traits:         st.TopTraits(promptTraits),
		PrimaryValues:  st.Guidelines.PrimaryValues,
		WillPrioritize: st.Guidelines.WillPrioritize,
		WillNot:        st.Guidelines.WillNot,
		Activations:    res.Activations,
		Degraded:       res.Degraded,
	}
}

func BuildPersonaSystemPrompt(st *blend.State, res activation.Result) (string, error) {
	if st == nil {
		return "", errors.New("no blended state")
	}
	var buf bytes.Buffer
	if err := personaSystemPromptTmpl.Execute(&buf, NewPersonaSystemPrompt(st, res)); err != nil {
		return "", errors.Wrap(err, "render persona system prompt")
	}
	return buf.String(), nil
}
