// Package plate validates Indian vehicle registration numbers against a
// configurable regional grammar: REGION-DD-LL-DDDD, where REGION is a fixed
// two-letter state code, DD is exactly two digits, LL is one or two uppercase
// letters and DDDD is one to four digits (e.g. KL-07-AB-1234).
package plate

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks plate numbers for one region. The region code is
// configuration, not policy: a deployment for another state only changes
// the code passed to New.
type Validator struct {
	region  string
	pattern *regexp.Regexp
}

func New(region string) (*Validator, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if !regexp.MustCompile(`^[A-Z]{2}$`).MatchString(region) {
		return nil, fmt.Errorf("invalid plate region %q: must be a 2-letter code", region)
	}
	return &Validator{
		region:  region,
		pattern: regexp.MustCompile(`^` + region + `-\d{2}-[A-Z]{1,2}-\d{1,4}$`),
	}, nil
}

// MustNew is New for statically known region codes.
func MustNew(region string) *Validator {
	v, err := New(region)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Validator) Region() string {
	return v.region
}

// Normalize uppercases and trims the input and reports whether the result
// matches the regional grammar. The normalized form is returned either way
// so callers can use it in error messages.
func (v *Validator) Normalize(raw string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	return normalized, v.pattern.MatchString(normalized)
}
