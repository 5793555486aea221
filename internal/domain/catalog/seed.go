package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Tests []CreateInput `yaml:"tests"`
}

// ParseSeed reads a YAML catalog:
//
//	tests:
//	  - code: CBC
//	    name: Complete Blood Count
//	    price: 350
//	    tat_hours: 6
//	    parameters:
//	      - {name: Hemoglobin, unit: g/dL, ref_male: "13-17", critical_low: 7}
func ParseSeed(r io.Reader) ([]CreateInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f seedFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	return f.Tests, nil
}

func LoadSeedFile(path string) ([]CreateInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}
