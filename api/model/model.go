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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/fleetpay/fleetpay/model"
)

type CreateCustomer struct {
	TenantID    string `json:"tenant_id"`
	CompanyName string `json:"company_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

func someNameValidation(c *CreateCustomer) validation.RuleFunc {
	return func(value interface{}) error {
		if c.CompanyName == "" && c.FirstName == "" && c.LastName == "" {
			return errors.New("a company name or a personal name is required")
		}
		return nil
	}
}

func (c *CreateCustomer) ValidateCreateCustomer() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TenantID, validation.Required),
		validation.Field(&c.CompanyName, validation.By(someNameValidation(c))),
	)
}

func (c *CreateCustomer) ToCustomer() model.Customer {
	return model.Customer{
		TenantID:    c.TenantID,
		CompanyName: c.CompanyName,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
	}
}

type CreateContract struct {
	TenantID       string    `json:"tenant_id"`
	ContractNumber string    `json:"contract_number"`
	CustomerID     string    `json:"customer_id"`
	Status         string    `json:"status"`
	MonthlyAmount  float64   `json:"monthly_amount"`
	ContractAmount float64   `json:"contract_amount"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

func (c *CreateContract) ValidateCreateContract() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TenantID, validation.Required),
		validation.Field(&c.ContractNumber, validation.Required),
		validation.Field(&c.CustomerID, validation.Required),
		validation.Field(&c.MonthlyAmount, validation.Min(0.0)),
		validation.Field(&c.ContractAmount, validation.Min(0.0)),
	)
}

func (c *CreateContract) ToContract() model.Contract {
	return model.Contract{
		TenantID:       c.TenantID,
		ContractNumber: c.ContractNumber,
		CustomerID:     c.CustomerID,
		Status:         c.Status,
		MonthlyAmount:  c.MonthlyAmount,
		ContractAmount: c.ContractAmount,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
	}
}

type StartLinking struct {
	TenantID string `json:"tenant_id"`
	DryRun   bool   `json:"dry_run"`
}

func (s *StartLinking) ValidateStartLinking() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.TenantID, validation.Required),
	)
}
