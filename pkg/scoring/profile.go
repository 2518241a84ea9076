package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/pipeline"
)

// Profile is a hypothetical customer to score. Field names follow the
// request keys.
type Profile struct {
	TenureMonths    int     `json:"tenure_months"`
	MonthlyCharges  float64 `json:"monthly_charges"`
	TotalCharges    float64 `json:"total_charges"`
	Gender          string  `json:"gender"`
	SeniorCitizen   string  `json:"senior_citizen"`
	Partner         string  `json:"partner"`
	Dependents      string  `json:"dependents"`
	PhoneService    string  `json:"phone_service"`
	InternetService string  `json:"internet_service"`
	Contract        string  `json:"contract"`
	PaymentMethod   string  `json:"payment_method"`
	OnlineSecurity  string  `json:"online_security"`
	TechSupport     string  `json:"tech_support"`
}

// Features returns the profile as the named mapping the pipeline consumes.
func (p Profile) Features() map[string]any {
	return map[string]any{
		"tenure_months":    float64(p.TenureMonths),
		"monthly_charges":  p.MonthlyCharges,
		"total_charges":    p.TotalCharges,
		"gender":           p.Gender,
		"senior_citizen":   p.SeniorCitizen,
		"partner":          p.Partner,
		"dependents":       p.Dependents,
		"phone_service":    p.PhoneService,
		"internet_service": p.InternetService,
		"contract":         p.Contract,
		"payment_method":   p.PaymentMethod,
		"online_security":  p.OnlineSecurity,
		"tech_support":     p.TechSupport,
	}
}

// maxTenureMonths bounds tenure so the int conversion cannot overflow.
const maxTenureMonths = math.MaxInt32

// ParseProfile validates a request mapping. Every schema key is required;
// extra keys are ignored. All problems are reported together.
func ParseProfile(in map[string]any) (Profile, error) {
	var p Profile
	var missing, details []string

	num := func(key string) (float64, bool) {
		v, ok := in[key]
		if !ok {
			missing = append(missing, key)
			return 0, false
		}
		f, ok := pipeline.ToFloat(v)
		if !ok {
			details = append(details, fmt.Sprintf("%s: expected a finite number, got %v", key, v))
		}
		return f, ok
	}
	cat := func(key string, dst *string) {
		v, ok := in[key]
		if !ok {
			missing = append(missing, key)
			return
		}
		s, ok := pipeline.ToCategory(v)
		if !ok {
			details = append(details, fmt.Sprintf("%s: expected a string, got %v", key, v))
			return
		}
		*dst = s
	}

	if t, ok := num("tenure_months"); ok {
		switch {
		case t < 0:
			details = append(details, fmt.Sprintf("tenure_months: must be >= 0, got %v", t))
		case t > maxTenureMonths:
			details = append(details, fmt.Sprintf("tenure_months: must be at most %d, got %v", maxTenureMonths, t))
		case t != math.Trunc(t):
			details = append(details, fmt.Sprintf("tenure_months: must be a whole number of months, got %v", t))
		default:
			p.TenureMonths = int(t)
		}
	}
	p.MonthlyCharges, _ = num("monthly_charges")
	p.TotalCharges, _ = num("total_charges")

	cat("gender", &p.Gender)
	cat("senior_citizen", &p.SeniorCitizen)
	cat("partner", &p.Partner)
	cat("dependents", &p.Dependents)
	cat("phone_service", &p.PhoneService)
	cat("internet_service", &p.InternetService)
	cat("contract", &p.Contract)
	cat("payment_method", &p.PaymentMethod)
	cat("online_security", &p.OnlineSecurity)
	cat("tech_support", &p.TechSupport)

	if len(missing) > 0 {
		sort.Strings(missing)
		details = append([]string{"missing fields: " + strings.Join(missing, ", ")}, details...)
	}
	if len(details) > 0 {
		return Profile{}, apperr.NewInvalidInputError(details)
	}
	return p, nil
}
