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

package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSchemaFields(t *testing.T) {
	schema := getPaymentSchema()

	fields := map[string]string{}
	for _, field := range schema.Fields {
		fields[field.Name] = field.Type
	}

	assert.Equal(t, "string", fields["payment_id"])
	assert.Equal(t, "string", fields["tenant_id"])
	assert.Equal(t, "float", fields["amount"])
	assert.Equal(t, "int64", fields["payment_date"], "payment_date should be int64 for Unix timestamps")
	assert.Equal(t, "string", fields["payment_method"])
	assert.Equal(t, "string", fields["transaction_type"])
}

func TestPaymentCollectionConfigTimeFields(t *testing.T) {
	config, ok := collectionConfigs[CollectionPayments]
	assert.True(t, ok, "payments collection config should exist")

	expected := []string{"payment_date", "created_at"}
	for _, want := range expected {
		var found bool
		for _, actual := range config.TimeFields {
			if actual == want {
				found = true
				break
			}
		}
		assert.True(t, found, "TimeFields should include %s, got %v", want, config.TimeFields)
	}
}

func TestEveryCollectionHasIDField(t *testing.T) {
	for name, config := range collectionConfigs {
		assert.NotEmpty(t, config.IDField, "collection %s has no ID field", name)

		var found bool
		for _, field := range config.Schema.Fields {
			if field.Name == config.IDField {
				found = true
				break
			}
		}
		assert.True(t, found, "collection %s schema missing its ID field %s", name, config.IDField)
	}
}

func TestEnsureSchemaFieldsFillsRequired(t *testing.T) {
	client := &TypesenseClient{}
	config := collectionConfigs[CollectionPayments]

	data := map[string]interface{}{
		"payment_id": "pay_123",
		"tenant_id":  "tenant_1",
	}
	client.ensureSchemaFields(config, data)

	assert.Equal(t, float64(0), data["amount"])
	assert.Equal(t, "", data["payment_method"])
	// empty optional strings are dropped, required ones default in place
	assert.NotContains(t, data, "notes")
}

func TestNormalizeTimeFields(t *testing.T) {
	client := &TypesenseClient{}
	config := collectionConfigs[CollectionPayments]

	paid := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	data := map[string]interface{}{
		"payment_date": paid,
		"created_at":   int64(1709251200),
	}
	client.normalizeTimeFields(config, data)

	assert.Equal(t, paid.Unix(), data["payment_date"])
	assert.Equal(t, int64(1709251200), data["created_at"])
}
