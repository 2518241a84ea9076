package data

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/dataprep"
)

// Header names of the cleaned telco export.
const (
	ColCustomerID      = "CustomerID"
	ColCity            = "City"
	ColLatitude        = "Latitude"
	ColLongitude       = "Longitude"
	ColGender          = "Gender"
	ColSeniorCitizen   = "Senior Citizen"
	ColPartner         = "Partner"
	ColDependents      = "Dependents"
	ColTenureMonths    = "Tenure Months"
	ColPhoneService    = "Phone Service"
	ColInternetService = "Internet Service"
	ColOnlineSecurity  = "Online Security"
	ColTechSupport     = "Tech Support"
	ColContract        = "Contract"
	ColPaymentMethod   = "Payment Method"
	ColMonthlyCharges  = "Monthly Charges"
	ColTotalCharges    = "Total Charges"
	ColChurnLabel      = "Churn Label"
	ColChurnValue      = "Churn Value"
	ColChurnReason     = "Churn Reason"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// Separator is the field delimiter of the source file.
const Separator = ';'

// MandatoryColumns must be present in the header for a load to succeed.
var MandatoryColumns = []string{ColMonthlyCharges, ColTotalCharges, ColLatitude, ColLongitude}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Customer is one normalized row. Missing numeric values are NaN.
type Customer struct {
	CustomerID string
	City       string
	Latitude   float64
	Longitude  float64

	Gender        string
	SeniorCitizen string
	Partner       string
	Dependents    string

	TenureMonths    float64
	PhoneService    string
	InternetService string
	OnlineSecurity  string
	TechSupport     string
	Contract        string
	PaymentMethod   string
	MonthlyCharges  float64
	TotalCharges    float64

	ChurnLabel  string
	ChurnValue  float64
	ChurnReason string

	// Churn is 1 when ChurnLabel is exactly "Yes", else 0.
	Churn int
}

// Text returns the raw string value of a categorical or identity column.
// Unknown columns return "".
func (c *Customer) Text(column string) string {
	switch column {
	case ColCustomerID:
		return c.CustomerID
	case ColCity:
		return c.City
	case ColGender:
		return c.Gender
	case ColSeniorCitizen:
		return c.SeniorCitizen
	case ColPartner:
		return c.Partner
	case ColDependents:
		return c.Dependents
	case ColPhoneService:
		return c.PhoneService
	case ColInternetService:
		return c.InternetService
	case ColOnlineSecurity:
		return c.OnlineSecurity
	case ColTechSupport:
		return c.TechSupport
	case ColContract:
		return c.Contract
	case ColPaymentMethod:
		return c.PaymentMethod
	case ColChurnLabel:
		return c.ChurnLabel
	case ColChurnReason:
		return c.ChurnReason
	}
	return ""
}

// Number returns the value of a numeric column. Unknown columns return NaN.
func (c *Customer) Number(column string) float64 {
	switch column {
	case ColLatitude:
		return c.Latitude
	case ColLongitude:
		return c.Longitude
	case ColTenureMonths:
		return c.TenureMonths
	case ColMonthlyCharges:
		return c.MonthlyCharges
	case ColTotalCharges:
		return c.TotalCharges
	case ColChurnValue:
		return c.ChurnValue
	}
	return math.NaN()
}

// IsMissing reports whether a numeric value is the missing marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Table is a loaded dataset. Records keep source order.
type Table struct {
	Columns  []string
	Records  []Customer
	Dropped  int
	Invalid  int // non-empty numeric values that failed to parse
	Encoding string

	index map[string]int
}

// Has reports whether the header contained column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

func (t *Table) Len() int { return len(t.Records) }

// Categories returns the distinct values of a text column in first-seen order.
func (t *Table) Categories(column string) []string {
	seen := map[string]struct{}{}
	var out []string
	for i := range t.Records {
		v := t.Records[i].Text(column)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Churned counts records with Churn == 1.
func (t *Table) Churned() int {
	n := 0
	for i := range t.Records {
		n += t.Records[i].Churn
	}
	return n
}

// Subset returns a table holding the given records, in the given order,
// with the same header.
func (t *Table) Subset(idx []int) *Table {
	out := &Table{Columns: t.Columns, Encoding: t.Encoding, index: t.index}
	out.Records = make([]Customer, len(idx))
	for i, j := range idx {
		out.Records[i] = t.Records[j]
	}
	return out
}

// Load reads and normalizes the dataset at path.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewConfigurationError(path, err)
	}
	return parseBytes(raw)
}

// Parse normalizes a dataset read from r. Input that is not valid UTF-8 is
// decoded as ISO-8859-1.
func Parse(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("data: read: %w", err)
	}
	return parseBytes(raw)
}

func decode(raw []byte) ([]byte, string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, EncodingUTF8, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, "", fmt.Errorf("data: latin-1 decode: %w", err)
	}
	return out, EncodingLatin1, nil
}

func parseBytes(raw []byte) (*Table, error) {
	text, enc, err := decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = Separator
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.New(apperr.CodeConfiguration, "dataset is empty")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "dataset header is unreadable", err)
	}

	t := &Table{Encoding: enc, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(h)
		t.Columns = append(t.Columns, h)
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	for _, col := range MandatoryColumns {
		if !t.Has(col) {
			return nil, apperr.NewConfigurationError(col, errors.New("column missing from header"))
		}
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				t.Dropped++
				continue
			}
			return nil, fmt.Errorf("data: read row: %w", err)
		}

		c, ok := t.normalize(rec)
		if !ok {
			t.Dropped++
			continue
		}
		t.Records = append(t.Records, c)
	}
	return t, nil
}

// normalize turns one raw row into a Customer. It returns false when the row
// falls under the drop policy (missing total charges or coordinates).
func (t *Table) normalize(rec []string) (Customer, bool) {
	field := func(column string) string {
		i, ok := t.index[column]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	number := func(column string) float64 {
		s := field(column)
		v, ok := dataprep.ParseDecimal(s)
		if !ok && strings.TrimSpace(s) != "" {
			t.Invalid++
		}
		return v
	}

	c := Customer{
		CustomerID:      field(ColCustomerID),
		City:            field(ColCity),
		Latitude:        number(ColLatitude),
		Longitude:       number(ColLongitude),
		Gender:          field(ColGender),
		SeniorCitizen:   field(ColSeniorCitizen),
		Partner:         field(ColPartner),
		Dependents:      field(ColDependents),
		TenureMonths:    number(ColTenureMonths),
		PhoneService:    field(ColPhoneService),
		InternetService: field(ColInternetService),
		OnlineSecurity:  field(ColOnlineSecurity),
		TechSupport:     field(ColTechSupport),
		Contract:        field(ColContract),
		PaymentMethod:   field(ColPaymentMethod),
		MonthlyCharges:  number(ColMonthlyCharges),
		TotalCharges:    number(ColTotalCharges),
		ChurnLabel:      field(ColChurnLabel),
		ChurnValue:      number(ColChurnValue),
		ChurnReason:     field(ColChurnReason),
	}
	if c.ChurnLabel == "Yes" {
		c.Churn = 1
	}

	if IsMissing(c.TotalCharges) || IsMissing(c.Latitude) || IsMissing(c.Longitude) {
		return Customer{}, false
	}
	return c, true
}
