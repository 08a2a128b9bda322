package team

import (
	"embed"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsFS embed.FS

type defaultMember struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Avatar       string   `yaml:"avatar"`
	Model        string   `yaml:"model"`
	AgentTool    string   `yaml:"agentTool"`
	Mode         string   `yaml:"mode"`
	Skills       []string `yaml:"skills"`
	Capabilities []string `yaml:"capabilities"`
}

type defaultsFile struct {
	Members []defaultMember `yaml:"members"`
}

func loadDefaults() []defaultMember {
	data, err := defaultsFS.ReadFile("defaults.yaml")
	if err != nil {
		return nil
	}
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil
	}
	return f.Members
}

var builtinDefaults = loadDefaults()
