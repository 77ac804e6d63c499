package apperr

import "fmt"

// KindPremiumRequired gates premium templates for free accounts.
const KindPremiumRequired = "premium_required"

// PremiumRequiredError rejects a premium template selected by a non-premium
// account, at selection and again at render time.
type PremiumRequiredError struct {
	TemplateID string
}

func (e *PremiumRequiredError) Error() string {
	return fmt.Sprintf("template %q requires a premium subscription", e.TemplateID)
}
