package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCreateCustomer(t *testing.T) {
	tests := []struct {
		name     string
		customer CreateCustomer
		wantErr  bool
	}{
		{
			name:     "Valid with company name",
			customer: CreateCustomer{TenantID: "tnt_1", CompanyName: "شركة النقل السريع"},
			wantErr:  false,
		},
		{
			name:     "Valid with personal name only",
			customer: CreateCustomer{TenantID: "tnt_1", FirstName: "احمد", LastName: "محمد"},
			wantErr:  false,
		},
		{
			name:     "Missing tenant",
			customer: CreateCustomer{CompanyName: "Gulf Fleet Services"},
			wantErr:  true,
		},
		{
			name:     "No name at all",
			customer: CreateCustomer{TenantID: "tnt_1"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.customer.ValidateCreateCustomer()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCreateContract(t *testing.T) {
	valid := CreateContract{
		TenantID:       "tnt_1",
		ContractNumber: "LTO-2024-001",
		CustomerID:     "cst_1",
		MonthlyAmount:  950,
		ContractAmount: 11400,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, valid.ValidateCreateContract())

	missingNumber := valid
	missingNumber.ContractNumber = ""
	assert.Error(t, missingNumber.ValidateCreateContract())

	missingCustomer := valid
	missingCustomer.CustomerID = ""
	assert.Error(t, missingCustomer.ValidateCreateContract())
}

func TestToContract(t *testing.T) {
	req := CreateContract{
		TenantID:       "tnt_1",
		ContractNumber: "LTO-2024-001",
		CustomerID:     "cst_1",
		Status:         "active",
		MonthlyAmount:  950,
		ContractAmount: 11400,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	contract := req.ToContract()
	assert.Equal(t, "LTO-2024-001", contract.ContractNumber)
	assert.Equal(t, "cst_1", contract.CustomerID)
	assert.Equal(t, 950.0, contract.MonthlyAmount)
	assert.Equal(t, req.EndDate, contract.EndDate)
}

func TestValidateStartLinking(t *testing.T) {
	assert.NoError(t, (&StartLinking{TenantID: "tnt_1"}).ValidateStartLinking())
	assert.Error(t, (&StartLinking{DryRun: true}).ValidateStartLinking())
}
