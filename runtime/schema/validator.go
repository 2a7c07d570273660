package schema

import "math"

// FieldErrors maps a dotted field path to its user-facing message.
type FieldErrors map[string]string

// Clone returns an independent copy.
func (e FieldErrors) Clone() FieldErrors {
	if e == nil {
		return nil
	}
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Result is the outcome of validating form data.
type Result struct {
	Valid  bool
	Errors FieldErrors
}

func valid() Result {
	return Result{Valid: true, Errors: FieldErrors{}}
}

// StepRule is the validation view of one wizard step.
type StepRule struct {
	StepID   string
	Optional bool
	Schema   *Schema
}

// Rules is an ordered list of step rules.
type Rules []StepRule

// Find returns the rule for stepID.
func (r Rules) Find(stepID string) (StepRule, bool) {
	for _, rule := range r {
		if rule.StepID == stepID {
			return rule, true
		}
	}
	return StepRule{}, false
}

// Validator evaluates form data against step schemas.
// It holds no per-wizard state and is safe for concurrent use.
type Validator struct {
	format MessageFormatter
}

// Option configures a Validator.
type Option func(*Validator)

// WithMessageFormatter replaces the default message table.
func WithMessageFormatter(fn MessageFormatter) Option {
	return func(v *Validator) {
		if fn != nil {
			v.format = fn
		}
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{format: FormatErrorMessage}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateStep validates data against a step schema. A nil schema accepts
// any data.
func (v *Validator) ValidateStep(stepID string, data map[string]any, s *Schema) Result {
	return v.validate(data, s, false)
}

// ValidatePartialStep is like ValidateStep but ignores missing required
// fields, so only values the user has already entered are checked.
func (v *Validator) ValidatePartialStep(stepID string, data map[string]any, s *Schema) Result {
	return v.validate(data, s, true)
}

// ValidateAllSteps validates every non-optional step and merges the errors.
// When two steps report the same field, the earlier step's message is kept.
func (v *Validator) ValidateAllSteps(data map[string]any, rules Rules) Result {
	out := valid()
	for _, rule := range rules {
		if rule.Optional {
			continue
		}
		res := v.ValidateStep(rule.StepID, data, rule.Schema)
		if res.Valid {
			continue
		}
		out.Valid = false
		for field, msg := range res.Errors {
			if _, exists := out.Errors[field]; !exists {
				out.Errors[field] = msg
			}
		}
	}
	return out
}

// CanProceedToNextStep reports whether the named step is optional or passes
// full validation. Unknown steps cannot proceed.
func (v *Validator) CanProceedToNextStep(stepID string, data map[string]any, rules Rules) bool {
	rule, ok := rules.Find(stepID)
	if !ok {
		return false
	}
	if rule.Optional {
		return true
	}
	return v.ValidateStep(stepID, data, rule.Schema).Valid
}

// CanComplete reports whether data satisfies the final schema.
func (v *Validator) CanComplete(data map[string]any, final *Schema) bool {
	return v.validate(data, final, false).Valid
}

// StepCompletion returns the percentage (0-100) of a step's required fields
// that are filled. A step with no schema or with valid data is complete; a
// failing step with no required fields is at zero.
func (v *Validator) StepCompletion(data map[string]any, s *Schema) int {
	if s == nil || v.validate(data, s, false).Valid {
		return 100
	}
	required := s.RequiredFields()
	if len(required) == 0 {
		return 0
	}
	filled := 0
	for _, field := range required {
		if IsFilled(Lookup(data, field)) {
			filled++
		}
	}
	return int(math.Round(100 * float64(filled) / float64(len(required))))
}

func (v *Validator) validate(data map[string]any, s *Schema, partial bool) Result {
	if s == nil {
		return valid()
	}
	out := valid()
	for _, viol := range s.evaluate(data) {
		if partial && viol.kind == "required" {
			continue
		}
		out.Valid = false
		if _, exists := out.Errors[viol.field]; exists {
			continue
		}
		out.Errors[viol.field] = v.format(viol.field, viol.raw)
	}
	return out
}
