package fleet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetcast/core/model"
)

// LoadOverrides reads per-day truck overrides from a JSON or YAML file:
//
//	12: {regular: 2, large: 0}
//	13: {regular: 0, large: 1}
func LoadOverrides(path string) (model.Overrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeOverrides(f, ext)
}

// DecodeOverrides reads overrides from r in the given format.
func DecodeOverrides(r io.Reader, format string) (model.Overrides, error) {
	o := make(model.Overrides)
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&o)
	case "json":
		err = json.NewDecoder(r).Decode(&o)
	default:
		return nil, fmt.Errorf("unsupported overrides format: %s", format)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	for day, c := range o {
		if day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: override day %d", model.ErrInvalidConfiguration, day)
		}
		if c.Regular < 0 || c.Large < 0 {
			return nil, fmt.Errorf("%w: negative override for day %d", model.ErrInvalidConfiguration, day)
		}
	}
	return o, nil
}
