package db

import (
	"context"
	"fmt"
	"net"
	"testing"

	"Melodix/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser: "u", DBPassword: "p@ss", DBHost: "db", DBPort: "3307", DBName: "catalog",
	}

	dsn := DSN(cfg)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "u", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db:3307", parsed.Addr)
	assert.Equal(t, "catalog", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, IsDuplicateKey(dup))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1146}))
	assert.False(t, IsDuplicateKey(assert.AnError))
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client, err := ConnectRedis(&config.Config{RedisHost: host, RedisPort: port})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, CheckRedis(context.Background(), client))
}
