package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"financial_review/pkg/core/extract"
	"financial_review/pkg/core/pipeline"
	"financial_review/pkg/core/units"
)

// sourceFlags describes where extraction data comes from.
type sourceFlags struct {
	Kind    string // static, pdf or xbrl
	Mapping string // xbrl concept mapping file
	Company string
	Ticker  string
	CIK     string
	Model   string
	PDFUnit string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Kind, "kind", "static", "input kind: static (normalized yaml/json), pdf or xbrl")
	cmd.Flags().StringVar(&f.Mapping, "mapping", "", "concept mapping file (xbrl only)")
	cmd.Flags().StringVar(&f.Company, "company", "", "company name override (xbrl only)")
	cmd.Flags().StringVar(&f.Ticker, "ticker", "", "ticker (xbrl only)")
	cmd.Flags().StringVar(&f.CIK, "cik", "", "CIK override (xbrl only)")
	cmd.Flags().StringVar(&f.Model, "model", "", "model that produced the payload, recorded as provenance")
	cmd.Flags().StringVar(&f.PDFUnit, "pdf-unit", "", "unit policy for pdf input; overrides review.pdf_unit (\"detected\" trusts the payload)")
}

// open builds the extraction source for one input. For xbrl, input may be
// "facts.json,mapping.json" instead of using --mapping.
func (f *sourceFlags) open(input, defaultPDFUnit string) (extract.Source, error) {
	switch strings.ToLower(f.Kind) {
	case "static", "":
		data, err := extract.LoadFile(input)
		if err != nil {
			return nil, err
		}
		return extract.StaticSource{Data: data}, nil

	case "pdf":
		payload, err := os.ReadFile(input)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", input)
		}
		unit := defaultPDFUnit
		if f.PDFUnit != "" {
			unit = f.PDFUnit
		}
		return extract.PDFSource{Payload: payload, Policy: units.PolicyFor(unit), Model: f.Model}, nil

	case "xbrl":
		factsPath, mappingPath := input, f.Mapping
		if before, after, ok := strings.Cut(input, ","); ok {
			factsPath, mappingPath = before, after
		}
		if mappingPath == "" {
			return nil, eris.New("xbrl input needs a concept mapping (--mapping or facts.json,mapping.json)")
		}
		facts, err := os.ReadFile(factsPath)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", factsPath)
		}
		mapping, err := os.ReadFile(mappingPath)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", mappingPath)
		}
		return extract.XBRLSource{
			Facts:       facts,
			Mapping:     mapping,
			CompanyName: f.Company,
			Ticker:      f.Ticker,
			CIK:         f.CIK,
			Model:       f.Model,
		}, nil

	default:
		return nil, eris.Errorf("unknown input kind %q", f.Kind)
	}
}

// loadEdits reads a YAML or JSON list of edits. An empty path means none.
func loadEdits(path string) ([]pipeline.Edit, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read edits %s", path)
	}

	var edits []pipeline.Edit
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &edits)
	default:
		err = json.Unmarshal(raw, &edits)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "decode edits %s", path)
	}
	return edits, nil
}
