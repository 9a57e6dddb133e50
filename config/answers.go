package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// answerEnvPrefix marks environment variables that pre-supply prompt
// answers. Double underscores map to dots: RIGUP_ANSWER_BACKEND__APP_ID
// supplies the prompt identifier "backend.app_id".
const answerEnvPrefix = "RIGUP_ANSWER_"

// LoadAnswersFile reads a flat YAML map of prompt identifier to answer.
func LoadAnswersFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading answers file: %w", err)
	}
	answers := map[string]string{}
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parsing answers file %s: %w", path, err)
	}
	return answers, nil
}

// EnvAnswers collects RIGUP_ANSWER_* variables from environ entries
// (os.Environ() form, "KEY=value").
func EnvAnswers(environ []string) map[string]string {
	answers := map[string]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, answerEnvPrefix) {
			continue
		}
		id := strings.ToLower(strings.TrimPrefix(key, answerEnvPrefix))
		id = strings.ReplaceAll(id, "__", ".")
		answers[id] = value
	}
	return answers
}

// MergeAnswers overlays answer maps; later maps win on key conflicts.
func MergeAnswers(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
