package template

import (
	"embed"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsFS embed.FS

type defaultTemplate struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}

type defaultsFile struct {
	Templates []defaultTemplate `yaml:"templates"`
}

func loadDefaults() map[string]string {
	data, err := defaultsFS.ReadFile("defaults.yaml")
	if err != nil {
		return map[string]string{}
	}
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(f.Templates))
	for _, t := range f.Templates {
		out[t.Role] = t.Text
	}
	return out
}

var builtinDefaults = loadDefaults()
