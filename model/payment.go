/*
Copyright 2024 Fleetpay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import "time"

// PaymentMethod is the closed set of accepted payment instruments.
// Normalization maps free-text spellings (Arabic and English) onto this
// set and falls back to MethodCash when nothing matches.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCheck        PaymentMethod = "check"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
)

// PaymentMethods lists every valid method, in no particular order.
var PaymentMethods = []PaymentMethod{
	MethodCash, MethodCheck, MethodBankTransfer, MethodCreditCard, MethodDebitCard,
}

// TransactionType distinguishes money received from money paid out.
type TransactionType string

const (
	TypeReceipt TransactionType = "receipt"
	TypePayment TransactionType = "payment"
)

// PaymentKind is the semantic classification of a payment derived from its
// free-text description. Used by the amount/date linking heuristic to pick
// the contract figure to compare against.
type PaymentKind string

const (
	KindSecurityDeposit PaymentKind = "security_deposit"
	KindMonthlyRent     PaymentKind = "monthly_rent"
	KindInsurance       PaymentKind = "insurance"
	KindPenalty         PaymentKind = "penalty"
	KindOther           PaymentKind = "other"
)

// Payment is a financial transaction scoped to a tenant. CustomerID and
// ContractID are populated either at import time (when resolution
// succeeds) or later by the linking engine; they stay empty otherwise.
type Payment struct {
	ID                   int64           `json:"-"`
	PaymentID            string          `json:"payment_id"`
	TenantID             string          `json:"tenant_id"`
	PaymentNumber        string          `json:"payment_number"`
	Amount               float64         `json:"amount"`
	PaymentDate          time.Time       `json:"payment_date"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	TransactionType      TransactionType `json:"transaction_type"`
	CustomerID           string          `json:"customer_id,omitempty"`
	ContractID           string          `json:"contract_id,omitempty"`
	AgreementNumber      string          `json:"agreement_number,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	ReconciliationStatus string          `json:"reconciliation_status,omitempty"`
	MetaData             map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Customer is the tenant-scoped party a payment can be attributed to.
type Customer struct {
	ID          int64     `json:"-"`
	CustomerID  string    `json:"customer_id"`
	TenantID    string    `json:"tenant_id"`
	CompanyName string    `json:"company_name,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NameVariants returns every non-empty name a customer can be looked up
// by: company name, first name, last name, and the joined full name.
func (c *Customer) NameVariants() []string {
	variants := make([]string, 0, 4)
	if c.CompanyName != "" {
		variants = append(variants, c.CompanyName)
	}
	if c.FirstName != "" {
		variants = append(variants, c.FirstName)
	}
	if c.LastName != "" {
		variants = append(variants, c.LastName)
	}
	if c.FirstName != "" && c.LastName != "" {
		variants = append(variants, c.FirstName+" "+c.LastName)
	}
	return variants
}

// Contract is an active rental agreement. MonthlyAmount is compared
// against rent-type payments, ContractAmount against deposit-type ones.
type Contract struct {
	ID             int64     `json:"-"`
	ContractID     string    `json:"contract_id"`
	TenantID       string    `json:"tenant_id"`
	ContractNumber string    `json:"contract_number"`
	CustomerID     string    `json:"customer_id"`
	MonthlyAmount  float64   `json:"monthly_amount"`
	ContractAmount float64   `json:"contract_amount"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Covers reports whether a date falls inside the contract's term,
// boundaries included.
func (c *Contract) Covers(date time.Time) bool {
	if date.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && date.After(c.EndDate) {
		return false
	}
	return true
}

// ReferenceAmount picks the contract figure the linking heuristic should
// compare a payment of the given kind against.
func (c *Contract) ReferenceAmount(kind PaymentKind) float64 {
	if kind == KindSecurityDeposit {
		return c.ContractAmount
	}
	return c.MonthlyAmount
}
