package db

import (
	"testing"

	"QueueFM/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{
		DBUser:     "fm",
		DBPassword: "p@ss:word",
		DBHost:     "db.local",
		DBPort:     "3307",
		DBName:     "music",
	})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "fm", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "music", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")
}
