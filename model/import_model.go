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

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RawRow is one record from an uploaded tabular source, keyed by whatever
// column names the file used. Consumed and discarded during an import run.
type RawRow map[string]string

// NormalizedPayment is the canonical shape a raw row is coerced into
// before validation and insertion. Resolution misses leave the reference
// fields empty; they are not errors.
type NormalizedPayment struct {
	RowIndex        int             `json:"row_index"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`
	ContractNumber  string          `json:"contract_number,omitempty"`
	ContractID      string          `json:"contract_id,omitempty"`
	AmbiguousCustomer bool          `json:"ambiguous_customer,omitempty"`
	Amount          float64         `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TransactionType TransactionType `json:"transaction_type"`
	AgreementNumber string          `json:"agreement_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Rejected        bool            `json:"rejected,omitempty"`
	RejectReason    string          `json:"reject_reason,omitempty"`
}

// ImportOptions controls a bulk import run.
type ImportOptions struct {
	TenantID            string `json:"tenant_id"`
	BatchSize           int    `json:"batch_size"`
	AutoCreateCustomers bool   `json:"auto_create_customers"`
	SkipValidation      bool   `json:"skip_validation"`
	UseAutoFix          bool   `json:"use_auto_fix"`
}

func (o ImportOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.TenantID, validation.Required),
		validation.Field(&o.BatchSize, validation.Min(0)),
	)
}

// RowError records one failed row: its position in the input and why it
// was excluded or its batch write failed.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult is the terminal summary of an import run.
type ImportResult struct {
	Total          int        `json:"total"`
	Successful     int        `json:"successful"`
	Failed         int        `json:"failed"`
	Errors         []RowError `json:"errors,omitempty"`
	ProcessingTime string     `json:"processing_time"`
}

const (
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ImportRun is the persisted record of one bulk import invocation.
type ImportRun struct {
	ID          int64      `json:"-"`
	ImportID    string     `json:"import_id"`
	TenantID    string     `json:"tenant_id"`
	UploadID    string     `json:"upload_id"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Successful  int        `json:"successful"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ImportProgress is checkpointed between batches so a run's advance is
// observable while it executes.
type ImportProgress struct {
	CompletedBatches int     `json:"completed_batches"`
	TotalBatches     int     `json:"total_batches"`
	Percentage       float64 `json:"percentage"`
}
