// Package extract holds the extraction strategies that feed the session
// builder. Each strategy turns its own upstream payload into
// session.NormalizedExtractionData and nothing else.
package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"financial_review/pkg/core/session"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v2"
)

// ErrMalformedPayload is returned when an upstream payload cannot be parsed.
var ErrMalformedPayload = eris.New("extract: malformed payload")

// Source is one extraction strategy.
type Source interface {
	Name() string
	Normalize(ctx context.Context) (*session.NormalizedExtractionData, error)
}

// StaticSource serves data that is already in normalized form, e.g. a fixture file.
type StaticSource struct {
	Data *session.NormalizedExtractionData
}

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) Normalize(ctx context.Context) (*session.NormalizedExtractionData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Data == nil {
		return nil, eris.Wrap(ErrMalformedPayload, "extract: static source has no data")
	}
	data := *s.Data
	if data.Source == "" {
		data.Source = s.Name()
	}
	return &data, nil
}

// LoadFile reads normalized data from a YAML (.yaml, .yml) or JSON file.
func LoadFile(path string) (*session.NormalizedExtractionData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read %s", path)
	}

	var data session.NormalizedExtractionData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedPayload, "extract: decode %s: %v", path, err)
	}
	return &data, nil
}
