// Package classify implements the material classifier (C8): an ordered
// list of prefix rules, first match wins, loaded from configuration and
// hot-reload tolerant. Grounded on the teacher's DetectorRegistry shape
// (internal/services/detectors/detector.go) - a flat, immutable list
// resolved by linear scan - applied here to classification rules instead
// of anomaly detectors.
package classify

import (
	"fmt"
	"regexp"

	"github.com/ashgrove-systems/mto-gateway/internal/config"
)

// Class is a resolved material classification.
type Class struct {
	ID          string
	DisplayName string
	SourceForm  string
	MTOField    string
}

type rule struct {
	pattern *regexp.Regexp
	class   Class
}

// Classifier holds the ordered prefix rules.
type Classifier struct {
	rules []rule
}

// New compiles the configured material classes into an ordered rule list.
// First match wins, matching spec.md §4.8 exactly.
func New(classes []config.MaterialClass) (*Classifier, error) {
	c := &Classifier{}
	for _, mc := range classes {
		re, err := regexp.Compile(mc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid material class pattern %q for %s: %w", mc.Pattern, mc.ID, err)
		}
		c.rules = append(c.rules, rule{
			pattern: re,
			class: Class{
				ID:          mc.ID,
				DisplayName: mc.DisplayName,
				SourceForm:  mc.SourceForm,
				MTOField:    mc.MTOField,
			},
		})
	}
	return c, nil
}

// Classify returns the first matching class for materialCode, or false
// when no rule matches - a non-goal exclusion per spec.md §4.8, not an
// error.
func (c *Classifier) Classify(materialCode string) (Class, bool) {
	for _, r := range c.rules {
		if r.pattern.MatchString(materialCode) {
			return r.class, true
		}
	}
	return Class{}, false
}

// Seeded class IDs, used by internal/assemble for class-specific routing
// (spec.md §4.9).
const (
	ClassFinished  = "finished"
	ClassSelfMade  = "self-made"
	ClassPurchased = "purchased"
)
