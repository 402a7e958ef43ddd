package storage

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the wire shape of an OpenCollection file. JSON documents are
// decoded through the same tags since JSON is a subset of YAML.
type Document struct {
	OpenCollection string        `yaml:"opencollection,omitempty"`
	Info           *Info         `yaml:"info,omitempty"`
	Name           string        `yaml:"name,omitempty"`
	Description    string        `yaml:"description,omitempty"`
	Docs           string        `yaml:"docs,omitempty"`
	Base           *Base         `yaml:"base,omitempty"`
	Environments   []Environment `yaml:"environments,omitempty"`
	Items          []Item        `yaml:"items,omitempty"`
}

// Info carries collection metadata.
type Info struct {
	Name    string `yaml:"name,omitempty"`
	Summary string `yaml:"summary,omitempty"`
}

// Base is inheritable configuration on the collection root or a folder.
type Base struct {
	Headers   []Header   `yaml:"headers,omitempty"`
	Auth      *Auth      `yaml:"auth,omitempty"`
	Variables []Variable `yaml:"variables,omitempty"`
}

// Toggle accepts both spellings of the on/off flag: `enabled: false` and
// `disabled: true`.
type Toggle struct {
	Enabled  *bool `yaml:"enabled,omitempty"`
	Disabled bool  `yaml:"disabled,omitempty"`
}

// Off reports whether the entry is switched off.
func (t Toggle) Off() bool {
	return t.Disabled || (t.Enabled != nil && !*t.Enabled)
}

type Header struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Toggle `yaml:",inline"`
}

type Param struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Type   string `yaml:"type"`
	Toggle `yaml:",inline"`
}

type Variable struct {
	Name      string        `yaml:"name"`
	Value     VariableValue `yaml:"value"`
	Transient bool          `yaml:"transient,omitempty"`
	Toggle    `yaml:",inline"`
}

// VariableValue is either a plain scalar or {data, type, variants}.
type VariableValue struct {
	Data     string    `yaml:"data"`
	Type     string    `yaml:"type,omitempty"`
	Variants []Variant `yaml:"variants,omitempty"`
}

type Variant struct {
	Data        string `yaml:"data"`
	Description string `yaml:"description,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (v *VariableValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*v = VariableValue{}
			return nil
		}
		*v = VariableValue{Data: node.Value}
		return nil
	case yaml.MappingNode:
		type plain VariableValue
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*v = VariableValue(p)
		return nil
	}
	return fmt.Errorf("line %d: variable value must be a scalar or a mapping", node.Line)
}

type Environment struct {
	UID       string     `yaml:"uid,omitempty"`
	Name      string     `yaml:"name"`
	Variables []Variable `yaml:"variables,omitempty"`
}

// Auth is the flattened union of every auth variant. Type selects which
// fields apply.
type Auth struct {
	Type            string `yaml:"type"`
	Username        string `yaml:"username,omitempty"`
	Password        string `yaml:"password,omitempty"`
	Token           string `yaml:"token,omitempty"`
	Key             string `yaml:"key,omitempty"`
	Value           string `yaml:"value,omitempty"`
	Placement       string `yaml:"placement,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
	SessionToken    string `yaml:"sessionToken,omitempty"`
	Service         string `yaml:"service,omitempty"`
	Region          string `yaml:"region,omitempty"`
	ProfileName     string `yaml:"profileName,omitempty"`
	Domain          string `yaml:"domain,omitempty"`
}

// Body keeps data undecoded: a string for raw bodies, a list of fields for
// forms and a list of files for file bodies.
type Body struct {
	Type string    `yaml:"type"`
	Data yaml.Node `yaml:"data"`
}

type FormField struct {
	Name        string `yaml:"name"`
	Value       string `yaml:"value"`
	Type        string `yaml:"type,omitempty"`
	ContentType string `yaml:"contentType,omitempty"`
	Toggle      `yaml:",inline"`
}

type FileEntry struct {
	FilePath    string `yaml:"filePath"`
	ContentType string `yaml:"contentType,omitempty"`
	Selected    bool   `yaml:"selected,omitempty"`
}

type Assertion struct {
	Expression  string `yaml:"expression"`
	Operator    string `yaml:"operator"`
	Value       string `yaml:"value,omitempty"`
	Description string `yaml:"description,omitempty"`
	Toggle      `yaml:",inline"`
}

type Script struct {
	Type string `yaml:"type"`
	Code string `yaml:"code"`
}

// Item is the flattened union of every item variant, discriminated by Type.
type Item struct {
	Type string `yaml:"type"`
	UID  string `yaml:"uid,omitempty"`
	Name string `yaml:"name"`
	Seq  int    `yaml:"seq,omitempty"`
	Docs string `yaml:"docs,omitempty"`

	// http, graphql and grpc
	Method     string      `yaml:"method,omitempty"`
	URL        string      `yaml:"url,omitempty"`
	Headers    []Header    `yaml:"headers,omitempty"`
	Params     []Param     `yaml:"params,omitempty"`
	Body       *Body       `yaml:"body,omitempty"`
	Auth       *Auth       `yaml:"auth,omitempty"`
	Variables  []Variable  `yaml:"variables,omitempty"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
	Scripts    []Script    `yaml:"scripts,omitempty"`

	// graphql
	Query          string `yaml:"query,omitempty"`
	QueryVariables string `yaml:"queryVariables,omitempty"`

	// grpc
	Message string `yaml:"message,omitempty"`

	// folder
	Base  *Base  `yaml:"base,omitempty"`
	Items []Item `yaml:"items,omitempty"`

	// script
	Code string `yaml:"code,omitempty"`
}
