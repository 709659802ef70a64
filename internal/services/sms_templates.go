package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed sms_templates.yaml
var defaultSMSTemplates []byte

// SMSTemplates renders structured SMS message types.
type SMSTemplates struct {
	byName map[string]*template.Template
}

type smsTemplateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// LoadSMSTemplates reads templates from path, or the embedded defaults when
// path is empty.
func LoadSMSTemplates(path string) (*SMSTemplates, error) {
	data := defaultSMSTemplates
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sms templates: %w", err)
		}
		data = b
	}
	return ParseSMSTemplates(data)
}

// ParseSMSTemplates compiles a YAML template document.
func ParseSMSTemplates(data []byte) (*SMSTemplates, error) {
	var f smsTemplateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sms templates: %w", err)
	}
	out := &SMSTemplates{byName: make(map[string]*template.Template, len(f.Templates))}
	for name, body := range f.Templates {
		t, err := template.New(name).Option("missingkey=zero").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("sms template %q: %w", name, err)
		}
		out.byName[strings.ToLower(name)] = t
	}
	return out, nil
}

// Has reports whether a template named typ exists.
func (t *SMSTemplates) Has(typ string) bool {
	if t == nil {
		return false
	}
	_, ok := t.byName[strings.ToLower(typ)]
	return ok
}

// Render executes the template named typ.
func (t *SMSTemplates) Render(typ string, data map[string]string) (string, error) {
	if !t.Has(typ) {
		return "", fmt.Errorf("unknown message type %q", typ)
	}
	var buf bytes.Buffer
	if err := t.byName[strings.ToLower(typ)].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %q: %w", typ, err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
