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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/typesense/typesense-go/typesense/api"

	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/database"
	redis_db "github.com/fleetpay/fleetpay/internal/redis-db"
	"github.com/fleetpay/fleetpay/internal/search"
)

// SQLFiles embeds the migration scripts shipped with the binary.
//
//go:embed sql
var SQLFiles embed.FS

// Fleetpay represents the main struct for the Fleetpay application.
type Fleetpay struct {
	queue      *Queue
	search     *search.TypesenseClient
	redis      redis.UniversalClient
	datasource database.IDataSource
}

// NewFleetpay initializes a new instance of Fleetpay with the provided database datasource.
// It fetches the configuration and initializes the Redis client, queue, and search client.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Fleetpay: A pointer to the newly created Fleetpay instance.
// - error: An error if any of the initialization steps fail.
func NewFleetpay(db database.IDataSource) (*Fleetpay, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	newSearch := search.NewTypesenseClient(configuration.TypeSenseKey, []string{configuration.TypeSense.Dns})
	newFleetpay := &Fleetpay{datasource: db, queue: newQueue, redis: redisClient.Client(), search: newSearch}
	return newFleetpay, nil
}

// Search performs a search on the specified collection using the provided query parameters.
func (f *Fleetpay) Search(collection string, query *api.SearchCollectionParams) (interface{}, error) {
	return f.search.Search(context.Background(), collection, query)
}

// GetSearchClient returns the Typesense client backing search operations.
func (f *Fleetpay) GetSearchClient() *search.TypesenseClient {
	return f.search
}

// GetDataSource returns the datasource backing persistence operations.
func (f *Fleetpay) GetDataSource() database.IDataSource {
	return f.datasource
}
