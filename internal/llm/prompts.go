package llm

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// PromptConfig represents a prompt loaded from an XML file.
// It contains the system prompt and the user prompt template.
type PromptConfig struct {
	XMLName xml.Name `xml:"prompt"`
	System  string   `xml:"system"`
	User    string   `xml:"user"`
}

// LoadPrompt reads and parses a prompt configuration from an XML file.
func LoadPrompt(filepath string) (*PromptConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	return ParsePrompt(data)
}

// ParsePrompt parses a prompt configuration from XML bytes.
func ParsePrompt(data []byte) (*PromptConfig, error) {
	var config PromptConfig
	if err := xml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse prompt xml: %w", err)
	}
	config.System = strings.TrimSpace(config.System)
	config.User = strings.TrimSpace(config.User)
	return &config, nil
}

// Build replaces every {{KEY}} placeholder in the user template with vars[KEY].
// Unknown placeholders are left as is.
func (p *PromptConfig) Build(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(p.User)
}
