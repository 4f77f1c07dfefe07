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
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/fleetpay/fleetpay/internal/normalize"
	"github.com/fleetpay/fleetpay/model"
)

// Resolver holds the per-tenant lookup indexes an import or linking run
// works against. It is built once per run from a database snapshot and is
// not safe for concurrent mutation afterwards.
type Resolver struct {
	tenantID string

	// canonical name -> set of customer IDs. A name mapping to more
	// than one ID is ambiguous and never resolved silently.
	customersByName map[string]map[string]struct{}

	// canonical contract number -> contract. Stored under both the raw
	// canonical form and a punctuation-stripped form.
	contractsByNumber map[string]*model.Contract

	contracts []*model.Contract
	customers []*model.Customer
}

// CustomerMatch is the outcome of resolving a customer name.
type CustomerMatch struct {
	CustomerID string
	Ambiguous  bool
}

// BuildResolver snapshots a tenant's customers and active contracts into
// lookup indexes.
func (f *Fleetpay) BuildResolver(ctx context.Context, tenantID string) (*Resolver, error) {
	customers, err := f.datasource.GetCustomersByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	contracts, err := f.datasource.GetActiveContractsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return NewResolver(tenantID, customers, contracts), nil
}

// NewResolver builds the lookup indexes from an already-loaded snapshot.
func NewResolver(tenantID string, customers []*model.Customer, contracts []*model.Contract) *Resolver {
	r := &Resolver{
		tenantID:          tenantID,
		customersByName:   make(map[string]map[string]struct{}),
		contractsByNumber: make(map[string]*model.Contract),
		contracts:         contracts,
		customers:         customers,
	}

	for _, customer := range customers {
		for _, variant := range customer.NameVariants() {
			key := normalize.Canonical(variant)
			if key == "" {
				continue
			}
			ids, ok := r.customersByName[key]
			if !ok {
				ids = make(map[string]struct{})
				r.customersByName[key] = ids
			}
			ids[customer.CustomerID] = struct{}{}
		}
	}

	for _, contract := range contracts {
		key := normalize.Canonical(contract.ContractNumber)
		if key == "" {
			continue
		}
		r.contractsByNumber[key] = contract
		if stripped := stripPunctuation(key); stripped != key {
			r.contractsByNumber[stripped] = contract
		}
		// Payments often cite only the numeric part of a contract
		// number. Index it when it is long enough to be distinctive
		// and not already claimed by another contract.
		if digits := digitsOnly(key); len(digits) >= 4 {
			if _, taken := r.contractsByNumber[digits]; !taken {
				r.contractsByNumber[digits] = contract
			}
		}
	}

	return r
}

// ResolveCustomer maps a free-text customer name onto a customer ID.
// Exact canonical matches are tried first, then a fuzzy pass over the
// known name keys. A name shared by several customers resolves to no ID
// and is flagged ambiguous instead.
func (r *Resolver) ResolveCustomer(name string) CustomerMatch {
	key := normalize.Canonical(name)
	if key == "" {
		return CustomerMatch{}
	}

	if ids, ok := r.customersByName[key]; ok {
		return matchFromSet(ids)
	}

	candidates := fuzzy.RankFindFold(key, r.nameKeys())
	if len(candidates) == 0 {
		return CustomerMatch{}
	}
	sort.Sort(candidates)

	best := candidates[0].Target
	if !partialNameMatch(key, best) {
		return CustomerMatch{}
	}
	return matchFromSet(r.customersByName[best])
}

// ResolveContract maps a contract-number string onto a contract, trying
// the raw canonical form, a punctuation-stripped one, and finally an
// either-direction substring scan.
func (r *Resolver) ResolveContract(number string) *model.Contract {
	key := normalize.Canonical(number)
	if key == "" {
		return nil
	}
	if contract, ok := r.contractsByNumber[key]; ok {
		return contract
	}
	if contract, ok := r.contractsByNumber[stripPunctuation(key)]; ok {
		return contract
	}
	if digits := digitsOnly(key); len(digits) >= 4 {
		if contract, ok := r.contractsByNumber[digits]; ok {
			return contract
		}
	}

	// Substring scan in either direction over the stripped known
	// numbers, for citations that carry a prefix or drop a segment.
	// Only a unique hit resolves.
	if stripped := stripPunctuation(key); len(stripped) >= 4 {
		var found *model.Contract
		for _, contract := range r.contracts {
			known := stripPunctuation(normalize.Canonical(contract.ContractNumber))
			if known == "" {
				continue
			}
			if !strings.Contains(known, stripped) && !strings.Contains(stripped, known) {
				continue
			}
			if found != nil && found != contract {
				return nil
			}
			found = contract
		}
		return found
	}
	return nil
}

// ContractsForCustomer returns the active contracts belonging to one
// customer.
func (r *Resolver) ContractsForCustomer(customerID string) []*model.Contract {
	matched := []*model.Contract{}
	for _, contract := range r.contracts {
		if contract.CustomerID == customerID {
			matched = append(matched, contract)
		}
	}
	return matched
}

// Contracts returns the full active-contract snapshot.
func (r *Resolver) Contracts() []*model.Contract {
	return r.contracts
}

func (r *Resolver) nameKeys() []string {
	keys := make([]string, 0, len(r.customersByName))
	for key := range r.customersByName {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func matchFromSet(ids map[string]struct{}) CustomerMatch {
	if len(ids) == 1 {
		for id := range ids {
			return CustomerMatch{CustomerID: id}
		}
	}
	return CustomerMatch{Ambiguous: len(ids) > 1}
}

// partialNameMatch guards fuzzy candidates: the two names must contain
// each other or sit within a small Levenshtein distance relative to the
// longer one.
func partialNameMatch(str1, str2 string) bool {
	if strings.Contains(str1, str2) || strings.Contains(str2, str1) {
		return true
	}

	distance := levenshtein.DistanceForStrings([]rune(str1), []rune(str2), levenshtein.DefaultOptions)
	maxLength := len([]rune(str1))
	if l := len([]rune(str2)); l > maxLength {
		maxLength = l
	}
	return distance <= maxLength/5
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x0600 && r <= 0x06FF:
			b.WriteRune(r)
		}
	}
	return b.String()
}
