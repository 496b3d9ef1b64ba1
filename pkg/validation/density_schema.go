package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// densityDocumentSchema describes the output of the raster precalculation.
const densityDocumentSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["admin", "densities"],
    "properties": {
      "admin": {"type": "string", "minLength": 1},
      "admin_1": {"type": ["string", "null"]},
      "densities": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["point", "density"],
          "properties": {
            "point": {
              "type": "object",
              "required": ["lat", "lng"],
              "properties": {
                "lat": {"type": "number", "minimum": -90, "maximum": 90},
                "lng": {"type": "number", "minimum": -180, "maximum": 180}
              }
            },
            "density": {"type": "number", "minimum": 0}
          }
        }
      }
    }
  }
}`

var densitySchemaLoader = gojsonschema.NewStringLoader(densityDocumentSchema)

// ValidateDensityDocument checks raw density document bytes against the
// document schema. source names the document in the results.
func ValidateDensityDocument(source string, data []byte) *Report {
	r := NewReport()

	result, err := gojsonschema.Validate(densitySchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		r.AddError(Result{
			Level:       LevelData,
			Message:     fmt.Sprintf("density document %s is not valid JSON: %v", source, err),
			SpecPath:    "sources.densities",
			ActualValue: source,
		})
		return r
	}
	for _, desc := range result.Errors() {
		r.AddError(Result{
			Level:       LevelData,
			Message:     fmt.Sprintf("density document %s: %s", source, desc.String()),
			SpecPath:    "sources.densities",
			ActualValue: source,
		})
	}
	return r
}
