package schema

import "time"

// InsurancePolicy represents the insurance_policies table
type InsurancePolicy struct {
	ID                             string     `gorm:"column:id;primaryKey;type:text"`
	ProviderName                   string     `gorm:"column:provider_name;not null;type:text"`
	PolicyNumber                   string     `gorm:"column:policy_number;not null;type:text"`
	DeductibleAmount               Decimal    `gorm:"column:deductible_amount;not null"`
	DwellingCoverageAmount         Decimal    `gorm:"column:dwelling_coverage_amount;not null"`
	PersonalPropertyCoverageAmount Decimal    `gorm:"column:personal_property_coverage_amount;not null"`
	LossOfUseCoverageAmount        Decimal    `gorm:"column:loss_of_use_coverage_amount;not null"`
	LiabilityCoverageAmount        Decimal    `gorm:"column:liability_coverage_amount;not null"`
	MedicalPaymentsCoverageAmount  Decimal    `gorm:"column:medical_payments_coverage_amount;not null"`
	StartDate                      *time.Time `gorm:"column:start_date"`
	EndDate                        *time.Time `gorm:"column:end_date"`
}

func (InsurancePolicy) TableName() string {
	return "insurance_policies"
}
