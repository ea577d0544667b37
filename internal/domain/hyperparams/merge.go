package hyperparams

import (
	"encoding/json"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// keyDelim separates nested keys. Tournament names routinely contain dots, so
// the default "." would split them into bogus nested sections.
const keyDelim = "|"

// Merge deep-merges an override document (JSON or YAML) over base and
// validates the result. Maps merge key by key; scalars and arrays replace.
// base is not modified.
func Merge(base *Params, doc []byte) (*Params, error) {
	if base == nil {
		base = Defaults()
	}
	seed, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("%w: encode base: %w", ErrMergeParams, err)
	}

	k := koanf.New(keyDelim)
	if err := k.Load(rawbytes.Provider(seed), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: load base: %w", ErrMergeParams, err)
	}
	if len(doc) > 0 {
		if err := k.Load(rawbytes.Provider(doc), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: parse override: %w", ErrMergeParams, err)
		}
	}

	var out Params
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrMergeParams, err)
	}
	if out.CategoryMultipliers == nil {
		out.CategoryMultipliers = map[string]float64{}
	}
	if out.TournamentFactors == nil {
		out.TournamentFactors = map[string]float64{}
	}
	if out.TournamentCategories == nil {
		out.TournamentCategories = map[string]string{}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
