package agent

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type prompts struct {
	System string `yaml:"system"`
}

func loadPrompts(toolList string) (prompts, error) {
	var p prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return prompts{}, err
	}
	p.System = strings.ReplaceAll(p.System, "{{TOOLS}}", toolList)
	return p, nil
}
