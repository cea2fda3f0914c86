package units

import "strings"

// Policy decides which unit an extraction is recorded in, given what the
// extraction step detected.
type Policy interface {
	Resolve(detected string) Unit
	Name() string
}

// Detected trusts whatever the extraction step reported.
type Detected struct{}

func (Detected) Resolve(detected string) Unit { return Canonicalize(detected) }
func (Detected) Name() string                  { return "detected" }

// Forced ignores detection and always uses Unit.
type Forced struct {
	Unit Unit
}

func (f Forced) Resolve(string) Unit { return f.Unit.Canonical() }
func (f Forced) Name() string        { return "forced:" + string(f.Unit.Canonical()) }

// PDFDefault assumes regulatory PDF filings report in millions.
var PDFDefault Policy = Forced{Unit: Millions}

// PolicyFor builds a policy from configuration text. "" and "detected"
// trust detection; anything else forces that unit.
func PolicyFor(name string) Policy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "detected":
		return Detected{}
	default:
		return Forced{Unit: Canonicalize(name)}
	}
}
