package deliverable

import "gopkg.in/yaml.v3"

// gateSchemaYAML mirrors the on-disk shape of a named gate override file:
//
//	schemas:
//	  strict-code:
//	    gates:
//	      - kind: FileExists
//	      - kind: NonEmpty
//	      - kind: SyntaxValid
//	      - kind: Command
//	        command: "go vet ./..."
//	        required: false
type gateSchemaYAML struct {
	Schemas map[string]struct {
		Gates []struct {
			Kind     string `yaml:"kind"`
			Command  string `yaml:"command,omitempty"`
			Required *bool  `yaml:"required,omitempty"`
		} `yaml:"gates"`
	} `yaml:"schemas"`
}

var gateKindNames = map[string]GateKind{
	"FileExists":  GateFileExists,
	"NonEmpty":    GateNonEmpty,
	"SyntaxValid": GateSyntaxValid,
	"Command":     GateCommand,
}

// LoadGateSchemas parses a named-schema override document and returns a
// lookup from schema name to its Gate list, letting operators replace a
// kind's default gates (e.g. a stricter Test schema with an extra vet
// pass) without a code change.
func LoadGateSchemas(doc []byte) (map[string][]Gate, error) {
	var parsed gateSchemaYAML
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, err
	}

	out := make(map[string][]Gate, len(parsed.Schemas))
	for name, schema := range parsed.Schemas {
		var gates []Gate
		for _, g := range schema.Gates {
			kind, ok := gateKindNames[g.Kind]
			if !ok {
				continue
			}
			required := true
			if g.Required != nil {
				required = *g.Required
			}
			gates = append(gates, Gate{Kind: kind, Required: required, Command: g.Command})
		}
		out[name] = gates
	}
	return out, nil
}

// Schema looks up a named gate override, falling back to the kind's
// compiled-in defaults when name is unknown or empty.
func Schema(name string, kind Kind, overrides map[string][]Gate) []Gate {
	if name == "" {
		return DefaultGates(kind)
	}
	if gates, ok := overrides[name]; ok {
		return gates
	}
	return DefaultGates(kind)
}
