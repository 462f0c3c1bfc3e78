package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
)

// JSONRenderer writes the import with its extracted components and, when
// converted, the markup and its Cooklang structure.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

type importJSON struct {
	*core.Import
	Structure *Cooklang `json:"structure,omitempty"`
}

// Render marshals the import as indented JSON.
func (r *JSONRenderer) Render(imp *core.Import) ([]byte, error) {
	out := importJSON{Import: imp}
	if imp.Output != "" {
		if parsed, err := recipe.ParseComponents(imp.Output); err == nil {
			cl := ParseCooklang(parsed.Text)
			out.Structure = &cl
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
