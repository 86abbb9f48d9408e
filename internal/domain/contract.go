package domain

import "strings"

// Industry is the sector a company trades in.
type Industry string

const (
	IndustryTechnology           Industry = "technology"
	IndustryProfessionalServices Industry = "professional_services"
	IndustryFinance              Industry = "finance"
	IndustryRetail               Industry = "retail"
	IndustryManufacturing        Industry = "manufacturing"
	IndustryHealthcare           Industry = "healthcare"
	IndustryConstruction         Industry = "construction"
	IndustryHospitality          Industry = "hospitality"
	IndustryCreative             Industry = "creative"
	IndustryOther                Industry = "other"
)

// Valid reports whether i is a known industry.
func (i Industry) Valid() bool {
	switch i {
	case IndustryTechnology, IndustryProfessionalServices, IndustryFinance,
		IndustryRetail, IndustryManufacturing, IndustryHealthcare,
		IndustryConstruction, IndustryHospitality, IndustryCreative, IndustryOther:
		return true
	}
	return false
}

// Label returns a human-readable name.
func (i Industry) Label() string {
	return humanize(string(i))
}

// CompanySize is the UK company size tier.
type CompanySize string

const (
	SizeMicro  CompanySize = "micro"
	SizeSmall  CompanySize = "small"
	SizeMedium CompanySize = "medium"
	SizeLarge  CompanySize = "large"
)

// Valid reports whether s is a known size tier.
func (s CompanySize) Valid() bool {
	switch s {
	case SizeMicro, SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// IsSmallBusiness reports whether the tier is micro or small.
func (s CompanySize) IsSmallBusiness() bool {
	return s == SizeMicro || s == SizeSmall
}

// LegalEntityType is the legal form of a company.
type LegalEntityType string

const (
	EntitySoleTrader     LegalEntityType = "sole_trader"
	EntityPartnership    LegalEntityType = "partnership"
	EntityLLP            LegalEntityType = "llp"
	EntityPrivateLimited LegalEntityType = "private_limited"
	EntityPublicLimited  LegalEntityType = "public_limited"
	EntityCharity        LegalEntityType = "charity"
)

// Valid reports whether e is a known entity type.
func (e LegalEntityType) Valid() bool {
	switch e {
	case EntitySoleTrader, EntityPartnership, EntityLLP,
		EntityPrivateLimited, EntityPublicLimited, EntityCharity:
		return true
	}
	return false
}

// IsLimitedCompany reports whether the entity is a private or public limited company.
func (e LegalEntityType) IsLimitedCompany() bool {
	return e == EntityPrivateLimited || e == EntityPublicLimited
}

// ContractType tags the kind of contract under review.
type ContractType string

const (
	ContractServiceAgreement   ContractType = "service_agreement"
	ContractEmployment         ContractType = "employment_contract"
	ContractNDA                ContractType = "nda"
	ContractSupplierAgreement  ContractType = "supplier_agreement"
	ContractConsultancy        ContractType = "consultancy_agreement"
	ContractPartnership        ContractType = "partnership_agreement"
	ContractLease              ContractType = "lease_agreement"
	ContractTermsAndConditions ContractType = "terms_and_conditions"
)

// Valid reports whether c is a known contract type.
func (c ContractType) Valid() bool {
	switch c {
	case ContractServiceAgreement, ContractEmployment, ContractNDA,
		ContractSupplierAgreement, ContractConsultancy, ContractPartnership,
		ContractLease, ContractTermsAndConditions:
		return true
	}
	return false
}

// Label returns a human-readable name.
func (c ContractType) Label() string {
	if c == ContractNDA {
		return "non-disclosure agreement"
	}
	return humanize(string(c))
}

// Company is the caller-owned context of the business reviewing a contract.
type Company struct {
	Name          string          `json:"name"`
	Industry      Industry        `json:"industry"`
	Size          CompanySize     `json:"size"`
	EntityType    LegalEntityType `json:"entityType"`
	VATRegistered bool            `json:"vatRegistered"`
}

// DisplayName returns the company name or a neutral fallback.
func (c Company) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return "your business"
	}
	return c.Name
}

// Money is a monetary amount. Currency defaults to GBP when empty.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Positive reports whether m is set and strictly positive.
func (m *Money) Positive() bool {
	return m != nil && m.Amount > 0
}

// CurrencyCode returns the ISO currency code, GBP if unset.
func (m *Money) CurrencyCode() string {
	if m == nil || m.Currency == "" {
		return "GBP"
	}
	return strings.ToUpper(m.Currency)
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
