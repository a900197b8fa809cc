package jobs

import (
	_ "embed"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed config.schema.json
var configSchema string

// ValidateConfiguration checks a raw configuration payload against the job
// schema. It returns the list of violations, empty when the payload is valid.
func ValidateConfiguration(raw []byte) ([]string, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(configSchema))
	if err != nil {
		return nil, err
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}

	if res.Valid() {
		return nil, nil
	}
	details := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		details = append(details, e.String())
	}
	return details, nil
}
