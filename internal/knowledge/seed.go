package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is one seed entry for ingestion.
type Document struct {
	Ticker string `yaml:"ticker"`
	Text   string `yaml:"text"`
}

type seedFile struct {
	Documents []Document `yaml:"documents"`
}

// LoadSeedFile reads a YAML seed file of the form:
//
//	documents:
//	  - ticker: AAPL
//	    text: Apple reported record services revenue ...
func LoadSeedFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var parsed seedFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Documents))
	for i, d := range parsed.Documents {
		if d.Ticker == "" || d.Text == "" {
			return nil, fmt.Errorf("seed file: document %d missing ticker or text", i)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
