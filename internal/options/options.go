// Package options loads the external JSON document that supplies
// parameter-group parameters and option-group options for a deployment.
//
// The document has a fixed schema:
//
//	{
//	  "parameter_group_parameters": [...],
//	  "option_group_options": [...],
//	  "ssl_option": [...]
//	}
//
// It is validated once at load time and never re-parsed per resource.
package options

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Listener ports applied when an option entry leaves its port unset.
const (
	DefaultPort    = 1521
	DefaultSSLPort = 2484
)

// Document is the parsed option/parameter source.
type Document struct {
	ParameterGroupParameters []Parameter `json:"parameter_group_parameters"`
	OptionGroupOptions       []Option    `json:"option_group_options"`
	SSLOption                []Option    `json:"ssl_option"`
}

// Parameter is one DB parameter group entry.
type Parameter struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	ApplyMethod string `json:"apply_method,omitempty"`
}

// Option is one option group entry. Port is optional in the document; Load
// fills it with the listener default for the list the option belongs to.
type Option struct {
	Name     string    `json:"name"`
	Port     *int      `json:"port,omitempty"`
	Version  string    `json:"version,omitempty"`
	Settings []Setting `json:"settings,omitempty"`
}

// Setting is a nested option setting key/value pair.
type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Load reads and validates an option document. Unknown top-level fields are
// rejected so schema drift in the source document fails at load time.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading option document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := validate(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	applyPortDefaults(&doc)
	return &doc, nil
}

func validate(doc *Document) error {
	for i, p := range doc.ParameterGroupParameters {
		if p.Name == "" {
			return fmt.Errorf("parameter_group_parameters[%d]: name is required", i)
		}
		if p.Value == "" {
			return fmt.Errorf("parameter_group_parameters[%d] (%s): value is required", i, p.Name)
		}
	}
	if err := validateOptions("option_group_options", doc.OptionGroupOptions); err != nil {
		return err
	}
	return validateOptions("ssl_option", doc.SSLOption)
}

func validateOptions(list string, opts []Option) error {
	for i, o := range opts {
		if o.Name == "" {
			return fmt.Errorf("%s[%d]: name is required", list, i)
		}
		for j, s := range o.Settings {
			if s.Name == "" || s.Value == "" {
				return fmt.Errorf("%s[%d] (%s): settings[%d] needs both name and value", list, i, o.Name, j)
			}
		}
	}
	return nil
}

func applyPortDefaults(doc *Document) {
	for i := range doc.OptionGroupOptions {
		if doc.OptionGroupOptions[i].Port == nil {
			port := DefaultPort
			doc.OptionGroupOptions[i].Port = &port
		}
	}
	for i := range doc.SSLOption {
		if doc.SSLOption[i].Port == nil {
			port := DefaultSSLPort
			doc.SSLOption[i].Port = &port
		}
	}
}

// Options returns the option list selected by the SSL flag. The
// parameter-group list is never affected by the flag.
func (d *Document) Options(ssl bool) []Option {
	if ssl {
		return d.SSLOption
	}
	return d.OptionGroupOptions
}

// Parameters returns the parameter-group parameter list.
func (d *Document) Parameters() []Parameter {
	return d.ParameterGroupParameters
}
