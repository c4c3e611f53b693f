package server

import (
	"net/url"

	"github.com/mitchellh/mapstructure"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
)

// reservedParams are query parameters that are not corrector options.
var reservedParams = map[string]bool{
	"filename": true,
}

// applyOverrides decodes option query parameters over base, so
// ?end_length=0.3&start_enabled=false adjusts a single request.
// Unknown parameters are rejected.
func applyOverrides(base corrector.Options, query url.Values) (corrector.Options, error) {
	input := make(map[string]interface{}, len(query))
	for k, v := range query {
		if reservedParams[k] || len(v) == 0 {
			continue
		}
		input[k] = v[len(v)-1]
	}
	if len(input) == 0 {
		return base, nil
	}

	opts := base
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
		Result:           &opts,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(input); err != nil {
		return base, errors.Wrap(err, errors.ErrConfigValidation, "invalid option override").
			SetSection(corrector.Section)
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}
