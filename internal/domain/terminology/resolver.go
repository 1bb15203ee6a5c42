package terminology

import (
	"errors"
	"fmt"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// ErrUnsupportedDirection is returned when Resolve is called with a system
// pair other than NAMASTE paired with TM2 or Biomedicine.
var ErrUnsupportedDirection = errors.New("unsupported translation direction")

// Resolve translates a code between NAMASTE and one of the ICD-11 views.
// Both directions of the NAMASTE/TM2 and NAMASTE/Biomedicine pairs are
// supported. Unknown and unmapped codes both yield an empty list; use
// HasCode to tell the two apart.
func (t *Table) Resolve(code string, source, target System) ([]Translation, error) {
	if source == target {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedDirection, source, target)
	}

	switch {
	case source == SystemNAMASTE && (target == SystemTM2 || target == SystemBiomedicine):
		r, ok := t.Get(code)
		if !ok {
			return []Translation{}, nil
		}
		return translationsFrom(r, target), nil

	case target == SystemNAMASTE && (source == SystemTM2 || source == SystemBiomedicine):
		out := []Translation{}
		for _, r := range t.records {
			mapped := r.TM2Code
			if source == SystemBiomedicine {
				mapped = r.BiomedCode
			}
			if mapped == code && mapped != CodeUnknown {
				out = append(out, Translation{
					TargetCode:  r.Code,
					Display:     r.Display,
					Equivalence: fhirmodels.EquivalenceEquivalent,
				})
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedDirection, source, target)
	}
}

// ResolveAll returns the TM2 and Biomedicine translations of a NAMASTE
// code together, as served by the REST translate endpoint.
func (t *Table) ResolveAll(code string) []Translation {
	r, ok := t.Get(code)
	if !ok {
		return []Translation{}
	}
	out := translationsFrom(r, SystemTM2)
	out = append(out, translationsFrom(r, SystemBiomedicine)...)
	return out
}

func translationsFrom(r Record, target System) []Translation {
	mapped, display, comment := r.TM2Code, r.TM2Display, "TM2"
	if target == SystemBiomedicine {
		mapped, display, comment = r.BiomedCode, r.BiomedDisplay, "Biomedicine"
	}
	if mapped == "" || mapped == CodeUnknown {
		return []Translation{}
	}
	return []Translation{{
		TargetCode:  mapped,
		Display:     display,
		Equivalence: fhirmodels.EquivalenceEquivalent,
		Comment:     comment,
	}}
}
