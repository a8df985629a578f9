// internal/prompts/prompts.go
// Prompt templates keyed by role/check type. Templates are loaded from a
// directory when present and fall back to the built-in defaults, so runs
// work out of the box while researchers can override any prompt.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// MaxFileSize is the maximum template file size we'll load (256KB).
const MaxFileSize = 256 * 1024

// Template keys.
const (
	KeyPersuaderSystem    = "persuader_system"
	KeyDebaterSystem      = "debater_system"
	KeyPersuaderOpening   = "persuader_opening"
	KeyHelperVanilla      = "helper_vanilla"
	KeyHelperFallacy      = "helper_fallacy"
	KeyModeratorConvinced = "moderator_convinced"
	KeyModeratorTopic     = "moderator_topic"
)

var defaults = map[string]string{
	KeyPersuaderSystem: "You are the Persuader in a structured debate. Your goal is to convince your " +
		"opponent that the following claim is true:\n\n{{.Claim}}\n\nArgue persuasively and in good form. " +
		"Respond to your opponent's objections directly. Keep each reply under 250 words.",

	KeyDebaterSystem: "You are the Debater in a structured debate. Your opponent will argue for the " +
		"following claim:\n\n{{.Claim}}\n\nScrutinize every argument. Concede only when genuinely convinced, " +
		"and if you become convinced, state clearly: \"{{.Marker}}\". Keep each reply under 250 words.",

	KeyPersuaderOpening: "Begin the debate. Present your opening argument for the claim.",

	KeyHelperVanilla: "You advise a debater arguing for the claim: {{.Claim}}\n\nTheir opponent just said:\n" +
		"{{.Opponent}}\n\nSuggest, in two or three sentences, the strongest line of argument to respond with.",

	KeyHelperFallacy: "You are a logical-fallacy analyst. The claim under debate is: {{.Claim}}\n\n" +
		"The opponent just argued:\n{{.Opponent}}\n\nIdentify any logical fallacies or weak points in this " +
		"argument, in two or three sentences. If there are none, say so.",

	KeyModeratorConvinced: "You moderate a debate about the claim: {{.Claim}}\n\nHere is the latest exchange:\n" +
		"{{.Exchange}}\n\nHas the debater been genuinely convinced of the claim? Answer on the first line " +
		"with exactly VERDICT: CONVINCED or VERDICT: CONTINUE, then one sentence of rationale.",

	KeyModeratorTopic: "You moderate a debate about the claim: {{.Claim}}\n\nHere is the latest exchange:\n" +
		"{{.Exchange}}\n\nIs the discussion still about this claim? Answer on the first line with exactly " +
		"VERDICT: ON-TOPIC or VERDICT: OFF-TOPIC, then one sentence of rationale.",
}

// Library loads and renders templates. Safe for concurrent use.
type Library struct {
	dir string

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewLibrary creates a template library. dir may be empty to use only the
// built-in defaults.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, cache: make(map[string]*template.Template)}
}

// Render renders the template for key with the given variables.
func (l *Library) Render(key string, vars any) (string, error) {
	tmpl, err := l.lookup(key)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return sb.String(), nil
}

func (l *Library) lookup(key string) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tmpl, ok := l.cache[key]; ok {
		return tmpl, nil
	}

	text, err := l.load(key)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	l.cache[key] = tmpl
	return tmpl, nil
}

// load returns the template source: the file <dir>/<key>.tmpl when
// present, the built-in default otherwise.
func (l *Library) load(key string) (string, error) {
	if l.dir != "" {
		path := filepath.Join(l.dir, key+".tmpl")
		info, err := os.Stat(path)
		if err == nil {
			if info.Size() > MaxFileSize {
				return "", fmt.Errorf("template %s too large (%d bytes, max %d)", path, info.Size(), MaxFileSize)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read template: %w", err)
			}
			return string(data), nil
		}
	}
	if text, ok := defaults[key]; ok {
		return text, nil
	}
	return "", fmt.Errorf("unknown template %q", key)
}
