package database

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetpay/fleetpay/config"
)

func TestGetDBConnection_Failure(t *testing.T) {
	instance = nil
	once = sync.Once{}

	mockConfig := &config.Configuration{
		DataSource: config.DataSourceConfig{
			Dns: "invalid-dns",
		},
	}

	_, err := GetDBConnection(mockConfig)
	assert.Error(t, err)
}

func TestConnectDB_Failure(t *testing.T) {
	invalidDNS := "invalid-dns"

	db, err := ConnectDB(invalidDNS)
	assert.Error(t, err)
	assert.Nil(t, db)
}
