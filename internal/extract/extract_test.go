package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetpay/fleetpay/model"
)

func TestContractCandidates(t *testing.T) {
	candidates := ContractCandidates("payment for LTO2024 monthly rent")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "LTO2024", candidates[0].Value)
		assert.Equal(t, 0.95, candidates[0].Confidence)
	}

	candidates = ContractCandidates("contract #4521 March installment")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "4521", candidates[0].Value)
		assert.Equal(t, 0.85, candidates[0].Confidence)
	}

	candidates = ContractCandidates("دفعة عقد 789 شهر مارس")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "789", candidates[0].Value)
		assert.Equal(t, 0.85, candidates[0].Confidence)
	}
}

func TestContractCandidatesHyphenatedNumber(t *testing.T) {
	// Multi-segment numbers like LTO-2024-001 must survive whole, not
	// fragment into their segments.
	candidates := ContractCandidates("payment for LTO-2024-001")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "LTO-2024-001", candidates[0].Value)
		assert.Equal(t, 0.95, candidates[0].Confidence)
	}

	candidates = ContractCandidates("ref AGR-2024-17 received")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "AGR-2024-17", candidates[0].Value)
		assert.Equal(t, 0.8, candidates[0].Confidence)
	}
}

func TestContractCandidatesArabicDigits(t *testing.T) {
	candidates := ContractCandidates("عقد ١٢٣٤")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "1234", candidates[0].Value)
	}
}

func TestContractCandidatesAlphanumericPrefix(t *testing.T) {
	candidates := ContractCandidates("ref AGR-2024 received")
	if assert.NotEmpty(t, candidates) {
		assert.Equal(t, "AGR-2024", candidates[0].Value)
		assert.Equal(t, 0.8, candidates[0].Confidence)
	}
}

func TestContractCandidatesDedupAndOrder(t *testing.T) {
	// "4521" appears both via the contract prefix and as a bare digit
	// run; it must surface once, at the stronger confidence.
	candidates := ContractCandidates("contract 4521 invoice 999")
	values := map[string]float64{}
	for _, c := range candidates {
		_, dup := values[c.Value]
		assert.False(t, dup, "duplicate candidate %s", c.Value)
		values[c.Value] = c.Confidence
	}
	assert.Equal(t, 0.85, values["4521"])
	assert.Equal(t, 0.5, values["999"])
	// sorted descending
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Confidence, candidates[i].Confidence)
	}
}

func TestContractCandidatesNone(t *testing.T) {
	assert.Empty(t, ContractCandidates("no references here"))
	assert.Empty(t, ContractCandidates(""))
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		text string
		want model.PaymentKind
	}{
		{"security deposit for vehicle", model.KindSecurityDeposit},
		{"عربون", model.KindSecurityDeposit},
		{"monthly rent March", model.KindMonthlyRent},
		{"إيجار شهر مارس", model.KindMonthlyRent},
		{"insurance premium", model.KindInsurance},
		{"تأمين المركبة", model.KindInsurance},
		{"traffic fine", model.KindPenalty},
		{"غرامة تأخير", model.KindPenalty},
		{"misc", model.KindOther},
		{"", model.KindOther},
	}

	for _, tt := range tests {
		kind, confidence := ClassifyKind(tt.text)
		assert.Equal(t, tt.want, kind, "text %q", tt.text)
		if tt.want == model.KindOther {
			assert.Equal(t, 0.5, confidence)
		} else {
			assert.Greater(t, confidence, 0.5)
		}
	}
}
