package methods

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	invschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Shape is the compiled parameter schema of a method.
type Shape struct {
	raw    json.RawMessage
	schema *jsonschema.Schema
}

// newShape reflects t into a JSON Schema and compiles it for validation.
// Unknown object members are rejected and every non-omitempty field is required.
func newShape(name string, t reflect.Type) (*Shape, error) {
	r := &invschema.Reflector{Anonymous: true}
	raw, err := json.Marshal(r.ReflectFromType(t))
	if err != nil {
		return nil, fmt.Errorf("%s - reflect schema for %s: %w", logPrefix, name, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s - read schema for %s: %w", logPrefix, name, err)
	}

	url := "mem://methods/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%s - add schema for %s: %w", logPrefix, name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%s - compile schema for %s: %w", logPrefix, name, err)
	}
	return &Shape{raw: raw, schema: sch}, nil
}

// Validate checks raw params against the shape without converting them.
// Schema violations are reported by instance location only.
func (s *Shape) Validate(params json.RawMessage) error {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(params))
	if err != nil {
		return err
	}
	if err := s.schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return errors.New(violations(ve))
		}
		return err
	}
	return nil
}

// violations flattens a validation error into its "at '<location>': <problem>" lines,
// dropping the header that names the compiled schema resource.
func violations(ve *jsonschema.ValidationError) string {
	var out []string
	for _, line := range strings.Split(ve.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		out = append(out, strings.TrimPrefix(line, "- "))
	}
	if len(out) == 0 {
		return "params do not match the method's parameter shape"
	}
	return strings.Join(out, "; ")
}

// JSON returns the schema document.
func (s *Shape) JSON() json.RawMessage {
	return s.raw
}
