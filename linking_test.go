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

package fleetpay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/database/mocks"
	"github.com/fleetpay/fleetpay/model"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		AmountTolerance:             config.DEFAULT_AMOUNT_TOLERANCE,
		AutoLinkConfidenceThreshold: config.DEFAULT_AUTO_LINK_THRESHOLD,
		DefaultBatchSize:            config.DEFAULT_BATCH_SIZE,
		MaxWorkers:                  config.DEFAULT_MAX_WORKERS,
	}
}

func linkingContracts() []*model.Contract {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	return []*model.Contract{
		{ContractID: "ctr_1", TenantID: "tenant1", ContractNumber: "LTO-2024-001", CustomerID: "cst_1", MonthlyAmount: 950, ContractAmount: 11400, StartDate: start, EndDate: end},
		{ContractID: "ctr_2", TenantID: "tenant1", ContractNumber: "LTO-2024-002", CustomerID: "cst_2", MonthlyAmount: 2500, ContractAmount: 30000, StartDate: start, EndDate: end},
	}
}

func TestSuggestForPayment_ContractNumberTier(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	payment := &model.Payment{
		PaymentID:       "pay_1",
		Amount:          123.45,
		PaymentDate:     time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		AgreementNumber: "LTO-2024-001",
	}

	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_1", suggestion.ContractID)
	assert.Equal(t, "cst_1", suggestion.CustomerID)
	assert.Equal(t, 0.95, suggestion.Confidence)
	assert.Equal(t, model.MatchContractNumber, suggestion.MatchType)
	assert.Equal(t, model.ActionAutoLink, suggestion.SuggestedAction)
}

func TestSuggestForPayment_ContractNumberInNotes(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	payment := &model.Payment{
		PaymentID:   "pay_2",
		Amount:      500,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Notes:       "دفعة شهريه عقد رقم ٢٠٢٤٠٠٢",
	}

	// Arabic digits in the notes still resolve once punctuation is
	// stripped from the stored number.
	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_2", suggestion.ContractID)
	assert.Equal(t, model.MatchContractNumber, suggestion.MatchType)
}

func TestSuggestForPayment_HyphenatedNumberInNotesBeatsAmountTier(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	// The amount sits on ctr_2's monthly rent, but the notes cite
	// ctr_1's full hyphenated number. The explicit reference must win.
	payment := &model.Payment{
		PaymentID:   "pay_10",
		Amount:      2500,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Notes:       "payment for LTO-2024-001 rent",
	}

	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_1", suggestion.ContractID)
	assert.Equal(t, "cst_1", suggestion.CustomerID)
	assert.Equal(t, model.MatchContractNumber, suggestion.MatchType)
	assert.Equal(t, model.ActionAutoLink, suggestion.SuggestedAction)
}

func TestSuggestForPayment_AmountDateTier(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	payment := &model.Payment{
		PaymentID:   "pay_3",
		Amount:      950,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Notes:       "monthly rent",
	}

	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_1", suggestion.ContractID)
	assert.Equal(t, model.MatchAmountDate, suggestion.MatchType)
	assert.Equal(t, model.ActionReviewRequired, suggestion.SuggestedAction)
	assert.InDelta(t, 0.92, suggestion.Confidence, 0.001)
}

func TestSuggestForPayment_AmountToleranceBoundary(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	// 900 sits exactly 50 away from the 950 monthly amount, which is
	// inside the tolerance boundary.
	payment := &model.Payment{
		PaymentID:   "pay_4",
		Amount:      900,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Notes:       "rent",
	}
	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_1", suggestion.ContractID)

	payment.Amount = 899.99
	assert.Nil(t, f.suggestForPayment(payment, r, testPipelineConfig()))
}

func TestSuggestForPayment_DateOutsideTerm(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	payment := &model.Payment{
		PaymentID:   "pay_5",
		Amount:      950,
		PaymentDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Notes:       "rent",
	}
	assert.Nil(t, f.suggestForPayment(payment, r, testPipelineConfig()))
}

func TestSuggestForPayment_DepositComparesContractAmount(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	payment := &model.Payment{
		PaymentID:   "pay_6",
		Amount:      11400,
		PaymentDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Notes:       "مبلغ التامين",
	}

	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_1", suggestion.ContractID)
}

func TestSuggestForPayment_MultipleCandidates(t *testing.T) {
	f := &Fleetpay{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	contracts := []*model.Contract{
		{ContractID: "ctr_a", ContractNumber: "LTO-2024-010", CustomerID: "cst_1", MonthlyAmount: 1000, StartDate: start},
		{ContractID: "ctr_b", ContractNumber: "LTO-2024-011", CustomerID: "cst_2", MonthlyAmount: 1000, StartDate: start},
	}
	r := NewResolver("tenant1", testCustomers(), contracts)

	payment := &model.Payment{
		PaymentID:   "pay_7",
		Amount:      1000,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Notes:       "rent",
	}

	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_a", suggestion.ContractID)
	assert.Equal(t, 0.5, suggestion.Confidence)
	assert.Equal(t, model.ActionManualLink, suggestion.SuggestedAction)
	assert.Contains(t, suggestion.Reasons[0], "2 contracts")
}

func TestSuggestForPayment_KnownCustomerNarrowsCandidates(t *testing.T) {
	f := &Fleetpay{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	contracts := []*model.Contract{
		{ContractID: "ctr_a", ContractNumber: "LTO-2024-010", CustomerID: "cst_1", MonthlyAmount: 1000, StartDate: start},
		{ContractID: "ctr_b", ContractNumber: "LTO-2024-011", CustomerID: "cst_2", MonthlyAmount: 1000, StartDate: start},
	}
	r := NewResolver("tenant1", testCustomers(), contracts)

	payment := &model.Payment{
		PaymentID:   "pay_8",
		CustomerID:  "cst_2",
		Amount:      1000,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Notes:       "rent",
	}

	suggestion := f.suggestForPayment(payment, r, testPipelineConfig())
	assert.NotNil(t, suggestion)
	assert.Equal(t, "ctr_b", suggestion.ContractID)
}

func TestSuggestForPayment_NoCandidates(t *testing.T) {
	f := &Fleetpay{}
	r := NewResolver("tenant1", testCustomers(), linkingContracts())

	payment := &model.Payment{
		PaymentID:   "pay_9",
		Amount:      77777,
		PaymentDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	assert.Nil(t, f.suggestForPayment(payment, r, testPipelineConfig()))
}

func TestAutoLink_GatesOnActionAndThreshold(t *testing.T) {
	config.MockConfig(&config.Configuration{})

	mockDS := new(mocks.MockDataSource)
	f := &Fleetpay{datasource: mockDS}

	suggestions := []model.LinkingSuggestion{
		{PaymentID: "pay_1", ContractID: "ctr_1", CustomerID: "cst_1", Confidence: 0.95, SuggestedAction: model.ActionAutoLink},
		{PaymentID: "pay_2", ContractID: "ctr_2", CustomerID: "cst_2", Confidence: 0.9, SuggestedAction: model.ActionReviewRequired},
		{PaymentID: "pay_3", ContractID: "ctr_1", CustomerID: "cst_1", Confidence: 0.7, SuggestedAction: model.ActionAutoLink},
	}

	mockDS.On("UpdatePaymentLinks", mock.Anything, "tenant1", "pay_1", "cst_1", "ctr_1").Return(nil)

	result, err := f.AutoLink(context.Background(), "tenant1", suggestions)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Linked)
	assert.Equal(t, 0, result.Failed)

	// pay_2 and pay_3 must never reach the datasource.
	mockDS.AssertNumberOfCalls(t, "UpdatePaymentLinks", 1)
}

func TestAutoLink_PerRecordFailureIsolation(t *testing.T) {
	config.MockConfig(&config.Configuration{})

	mockDS := new(mocks.MockDataSource)
	f := &Fleetpay{datasource: mockDS}

	suggestions := []model.LinkingSuggestion{
		{PaymentID: "pay_1", ContractID: "ctr_1", CustomerID: "cst_1", Confidence: 0.95, SuggestedAction: model.ActionAutoLink},
		{PaymentID: "pay_2", ContractID: "ctr_2", CustomerID: "cst_2", Confidence: 0.95, SuggestedAction: model.ActionAutoLink},
	}

	mockDS.On("UpdatePaymentLinks", mock.Anything, "tenant1", "pay_1", "cst_1", "ctr_1").Return(errors.New("db down"))
	mockDS.On("UpdatePaymentLinks", mock.Anything, "tenant1", "pay_2", "cst_2", "ctr_2").Return(nil)

	result, err := f.AutoLink(context.Background(), "tenant1", suggestions)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Linked)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "pay_1", result.Errors[0].PaymentID)
}

func TestSuggestLinks_SortedByConfidence(t *testing.T) {
	config.MockConfig(&config.Configuration{})

	mockDS := new(mocks.MockDataSource)
	f := &Fleetpay{datasource: mockDS}

	payments := []*model.Payment{
		{PaymentID: "pay_low", Amount: 950, PaymentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Notes: "rent"},
		{PaymentID: "pay_high", Amount: 1, PaymentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), AgreementNumber: "LTO-2024-002"},
	}

	mockDS.On("GetCustomersByTenant", mock.Anything, "tenant1").Return(testCustomers(), nil)
	mockDS.On("GetActiveContractsByTenant", mock.Anything, "tenant1").Return(linkingContracts(), nil)
	mockDS.On("GetUnlinkedPayments", mock.Anything, "tenant1", linkingPageSize, 0).Return(payments, nil)

	suggestions, err := f.SuggestLinks(context.Background(), "tenant1")
	assert.NoError(t, err)
	assert.Len(t, suggestions, 2)
	assert.Equal(t, "pay_high", suggestions[0].PaymentID)
	assert.Equal(t, 0.95, suggestions[0].Confidence)
	assert.True(t, suggestions[0].Confidence >= suggestions[1].Confidence)
}
