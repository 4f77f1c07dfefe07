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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetpay/fleetpay/model"
)

func testCustomers() []*model.Customer {
	return []*model.Customer{
		{CustomerID: "cst_1", TenantID: "tenant1", CompanyName: "شركة النقل السريع"},
		{CustomerID: "cst_2", TenantID: "tenant1", FirstName: "احمد", LastName: "محمد"},
		{CustomerID: "cst_3", TenantID: "tenant1", CompanyName: "Gulf Fleet Services"},
		{CustomerID: "cst_4", TenantID: "tenant1", FirstName: "سالم", LastName: "العتيبي"},
		{CustomerID: "cst_5", TenantID: "tenant1", FirstName: "سالم", LastName: "القحطاني"},
	}
}

func testContracts() []*model.Contract {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*model.Contract{
		{ContractID: "ctr_1", TenantID: "tenant1", ContractNumber: "LTO-2024-001", CustomerID: "cst_1", MonthlyAmount: 1500, ContractAmount: 18000, StartDate: start},
		{ContractID: "ctr_2", TenantID: "tenant1", ContractNumber: "LTO-2024-002", CustomerID: "cst_2", MonthlyAmount: 950, ContractAmount: 11400, StartDate: start},
	}
}

func TestResolveCustomer_ExactMatch(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	match := r.ResolveCustomer("Gulf Fleet Services")
	assert.Equal(t, "cst_3", match.CustomerID)
	assert.False(t, match.Ambiguous)
}

func TestResolveCustomer_ArabicVariantSpelling(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	// Hamza variant folds onto the stored bare-alef spelling.
	match := r.ResolveCustomer("أحمد محمد")
	assert.Equal(t, "cst_2", match.CustomerID)
}

func TestResolveCustomer_FirstNameOnly(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	match := r.ResolveCustomer("احمد")
	assert.Equal(t, "cst_2", match.CustomerID)
}

func TestResolveCustomer_AmbiguousFirstName(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	// Two customers share the first name; the resolver must not pick one.
	match := r.ResolveCustomer("سالم")
	assert.Empty(t, match.CustomerID)
	assert.True(t, match.Ambiguous)
}

func TestResolveCustomer_FuzzyMatch(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	match := r.ResolveCustomer("Gulf Fleet Service")
	assert.Equal(t, "cst_3", match.CustomerID)
}

func TestResolveCustomer_NoMatch(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	match := r.ResolveCustomer("Completely Unknown Trading")
	assert.Empty(t, match.CustomerID)
	assert.False(t, match.Ambiguous)
}

func TestResolveCustomer_EmptyName(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), nil)

	match := r.ResolveCustomer("  ")
	assert.Empty(t, match.CustomerID)
	assert.False(t, match.Ambiguous)
}

func TestResolveContract(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), testContracts())

	contract := r.ResolveContract("LTO-2024-001")
	assert.NotNil(t, contract)
	assert.Equal(t, "ctr_1", contract.ContractID)

	// Case and punctuation differences still resolve.
	contract = r.ResolveContract("lto 2024 001")
	assert.NotNil(t, contract)
	assert.Equal(t, "ctr_1", contract.ContractID)

	contract = r.ResolveContract("LTO2024002")
	assert.NotNil(t, contract)
	assert.Equal(t, "ctr_2", contract.ContractID)

	assert.Nil(t, r.ResolveContract("LTO-2099-999"))
	assert.Nil(t, r.ResolveContract(""))
}

func TestResolveContract_Substring(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), testContracts())

	// A citation with an extra trailing segment still resolves through
	// the substring pass.
	contract := r.ResolveContract("LTO-2024-001/2")
	assert.NotNil(t, contract)
	assert.Equal(t, "ctr_1", contract.ContractID)

	// A shared prefix matches more than one contract and must not
	// resolve.
	assert.Nil(t, r.ResolveContract("LTO-2024"))
}

func TestContractsForCustomer(t *testing.T) {
	r := NewResolver("tenant1", testCustomers(), testContracts())

	contracts := r.ContractsForCustomer("cst_1")
	assert.Len(t, contracts, 1)
	assert.Equal(t, "LTO-2024-001", contracts[0].ContractNumber)

	assert.Empty(t, r.ContractsForCustomer("cst_3"))
}
