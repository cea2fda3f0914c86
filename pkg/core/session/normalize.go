package session

import "financial_review/pkg/core/units"

// NeedsNormalization reports whether s still holds scaled values.
func (s *Session) NeedsNormalization() bool {
	return s.Unit.Canonical() != units.Dollars
}

// NormalizeUnits returns a copy of s with every value expressed in dollars.
// The input is never modified. A session already in dollars comes back
// unchanged apart from canonicalizing the unit tag, so applying the
// function to its own output never rescales twice.
func NormalizeUnits(s *Session) *Session {
	out := s.Clone()
	from := s.Unit.Canonical()
	out.Unit = units.Dollars
	if !s.NeedsNormalization() {
		return out
	}

	for k, ev := range out.RawValues {
		ev.Value = units.Scale(ev.Value, from)
		ev.ValuePrior = units.Scale(ev.ValuePrior, from)
		out.RawValues[k] = ev
	}
	for i := range out.UnmappedValues {
		out.UnmappedValues[i].ValueCurrent = units.Scale(out.UnmappedValues[i].ValueCurrent, from)
		out.UnmappedValues[i].ValuePrior = units.Scale(out.UnmappedValues[i].ValuePrior, from)
	}

	out.NormalizedFrom = from
	return out
}
