package mastery

import "math"

// BktParameters are the four Bayesian Knowledge Tracing probabilities for a
// knowledge component.
type BktParameters struct {
	PInitial float64 `json:"p_initial" yaml:"p_initial"`
	PTransit float64 `json:"p_transit" yaml:"p_transit"`
	PSlip    float64 `json:"p_slip" yaml:"p_slip"`
	PGuess   float64 `json:"p_guess" yaml:"p_guess"`
}

// DefaultBktParameters returns the platform-wide fallback parameters.
func DefaultBktParameters() BktParameters {
	return BktParameters{
		PInitial: 0.3,
		PTransit: 0.09,
		PSlip:    0.1,
		PGuess:   0.2,
	}
}

// Validate rejects any probability outside [0,1]. Values are never clamped.
func (p BktParameters) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"p_initial", p.PInitial},
		{"p_transit", p.PTransit},
		{"p_slip", p.PSlip},
		{"p_guess", p.PGuess},
	} {
		if !isProbability(f.v) {
			return &InvalidParameterError{Field: f.name, Value: f.v}
		}
	}
	return nil
}

// ParameterOverrides is a partial BktParameters; nil fields inherit the default.
type ParameterOverrides struct {
	PInitial *float64 `json:"p_initial,omitempty" yaml:"p_initial,omitempty"`
	PTransit *float64 `json:"p_transit,omitempty" yaml:"p_transit,omitempty"`
	PSlip    *float64 `json:"p_slip,omitempty" yaml:"p_slip,omitempty"`
	PGuess   *float64 `json:"p_guess,omitempty" yaml:"p_guess,omitempty"`
}

func (o *ParameterOverrides) IsEmpty() bool {
	return o == nil || (o.PInitial == nil && o.PTransit == nil && o.PSlip == nil && o.PGuess == nil)
}

func (o *ParameterOverrides) Validate() error {
	if o == nil {
		return nil
	}
	for _, f := range o.fields() {
		if f.v != nil && !isProbability(*f.v) {
			return &InvalidParameterError{Field: f.name, Value: *f.v}
		}
	}
	return nil
}

// Apply merges the overrides onto base field by field.
func (o *ParameterOverrides) Apply(base BktParameters) BktParameters {
	if o == nil {
		return base
	}
	out := base
	if o.PInitial != nil {
		out.PInitial = *o.PInitial
	}
	if o.PTransit != nil {
		out.PTransit = *o.PTransit
	}
	if o.PSlip != nil {
		out.PSlip = *o.PSlip
	}
	if o.PGuess != nil {
		out.PGuess = *o.PGuess
	}
	return out
}

// Sanitized returns a copy with every out-of-range field dropped, plus the
// errors for the fields that were dropped.
func (o *ParameterOverrides) Sanitized() (*ParameterOverrides, []error) {
	if o == nil {
		return nil, nil
	}
	out := &ParameterOverrides{}
	var errs []error
	keep := func(name string, v *float64) *float64 {
		if v == nil {
			return nil
		}
		if !isProbability(*v) {
			errs = append(errs, &InvalidParameterError{Field: name, Value: *v})
			return nil
		}
		val := *v
		return &val
	}
	out.PInitial = keep("p_initial", o.PInitial)
	out.PTransit = keep("p_transit", o.PTransit)
	out.PSlip = keep("p_slip", o.PSlip)
	out.PGuess = keep("p_guess", o.PGuess)
	return out, errs
}

func (o *ParameterOverrides) fields() []struct {
	name string
	v    *float64
} {
	return []struct {
		name string
		v    *float64
	}{
		{"p_initial", o.PInitial},
		{"p_transit", o.PTransit},
		{"p_slip", o.PSlip},
		{"p_guess", o.PGuess},
	}
}

func isProbability(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
