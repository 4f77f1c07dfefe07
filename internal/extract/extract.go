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

// Package extract recovers structured hints from free-text payment notes:
// contract-number-shaped substrings and a semantic payment classification.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fleetpay/fleetpay/internal/normalize"
	"github.com/fleetpay/fleetpay/model"
)

// ContractCandidate is one contract-number-shaped substring found in free
// text, with the confidence of the pattern that produced it.
type ContractCandidate struct {
	Value      string
	Confidence float64
}

type contractPattern struct {
	re         *regexp.Regexp
	confidence float64
}

// Patterns are tried in confidence order; the prefixed conventions are
// strong signals, a bare digit run is a weak one.
var contractPatterns = []contractPattern{
	{regexp.MustCompile(`(?i)\b(lto[-\s]?\d+(?:-\d+)*)\b`), 0.95},
	{regexp.MustCompile(`(?i)contract[#\s:]*(\d+(?:-\d+)*)`), 0.85},
	{regexp.MustCompile(`عقد\s*(?:رقم\s*)?(\d+(?:-\d+)*)`), 0.85},
	{regexp.MustCompile(`\b([A-Z]{2,5}(?:-?\d+)+)\b`), 0.8},
	{regexp.MustCompile(`\b(\d{3,})\b`), 0.5},
}

// ContractCandidates scans free text for contract-number candidates.
// Arabic-Indic digits are folded first so "عقد ١٢٣٤" is found. Duplicate
// values keep their highest-confidence occurrence; the result is sorted
// by descending confidence.
func ContractCandidates(text string) []ContractCandidate {
	folded := normalize.FoldArabic(text)
	seen := make(map[string]float64)
	var order []string

	for _, p := range contractPatterns {
		for _, match := range p.re.FindAllStringSubmatch(folded, -1) {
			value := strings.ToUpper(strings.TrimSpace(match[1]))
			if value == "" {
				continue
			}
			if existing, ok := seen[value]; ok {
				if p.confidence > existing {
					seen[value] = p.confidence
				}
				continue
			}
			seen[value] = p.confidence
			order = append(order, value)
		}
	}

	candidates := make([]ContractCandidate, 0, len(order))
	for _, value := range order {
		candidates = append(candidates, ContractCandidate{Value: value, Confidence: seen[value]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

type kindRule struct {
	kind       model.PaymentKind
	confidence float64
	keywords   []string
}

// Deposit is checked before insurance so "تامين" in a deposit phrase like
// "مبلغ التامين" still needs the deposit-specific words to win.
var kindRules = []kindRule{
	{model.KindSecurityDeposit, 0.9, []string{"deposit", "عربون", "ضمان", "مبلغ التامين"}},
	{model.KindMonthlyRent, 0.85, []string{"rent", "monthly", "ايجار", "شهري", "قسط"}},
	{model.KindInsurance, 0.85, []string{"insurance", "تامين"}},
	{model.KindPenalty, 0.85, []string{"penalty", "fine", "violation", "غرامه", "مخالفه"}},
}

// ClassifyKind maps a payment's free-text description onto a semantic
// kind with a classifier confidence. Unclassifiable text is KindOther at
// 0.5.
func ClassifyKind(text string) (model.PaymentKind, float64) {
	folded := strings.ToLower(normalize.FoldArabic(text))
	for _, rule := range kindRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(folded, keyword) {
				return rule.kind, rule.confidence
			}
		}
	}
	return model.KindOther, 0.5
}
