package pipeline

import "telcochurn/pkg/data"

// Kind is how a feature is preprocessed.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Feature maps a request field name to its dataset column.
type Feature struct {
	Name   string
	Column string
	Kind   Kind
}

// Schema describes the model inputs and the target column.
type Schema struct {
	Features []Feature
	Target   string
}

// DefaultSchema is the fixed churn feature set: three numeric features then
// ten categorical ones.
func DefaultSchema() Schema {
	return Schema{
		Features: []Feature{
			{"tenure_months", data.ColTenureMonths, Numeric},
			{"monthly_charges", data.ColMonthlyCharges, Numeric},
			{"total_charges", data.ColTotalCharges, Numeric},
			{"gender", data.ColGender, Categorical},
			{"senior_citizen", data.ColSeniorCitizen, Categorical},
			{"partner", data.ColPartner, Categorical},
			{"dependents", data.ColDependents, Categorical},
			{"phone_service", data.ColPhoneService, Categorical},
			{"internet_service", data.ColInternetService, Categorical},
			{"contract", data.ColContract, Categorical},
			{"payment_method", data.ColPaymentMethod, Categorical},
			{"online_security", data.ColOnlineSecurity, Categorical},
			{"tech_support", data.ColTechSupport, Categorical},
		},
		Target: data.ColChurnLabel,
	}
}

func (s Schema) byKind(k Kind) []Feature {
	var out []Feature
	for _, f := range s.Features {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

func (s Schema) Numeric() []Feature     { return s.byKind(Numeric) }
func (s Schema) Categorical() []Feature { return s.byKind(Categorical) }

// FeatureNames lists request field names in schema order.
func (s Schema) FeatureNames() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Extract splits a customer into the numeric and categorical inputs.
func (s Schema) Extract(c *data.Customer) (num []float64, cat []string) {
	for _, f := range s.Features {
		if f.Kind == Numeric {
			num = append(num, c.Number(f.Column))
		} else {
			cat = append(cat, c.Text(f.Column))
		}
	}
	return num, cat
}
