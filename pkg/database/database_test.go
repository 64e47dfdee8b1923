package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/gin-blog/config"
)

func TestInitDBSqliteMigrates(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}}
	db, err := InitDB(cfg)
	require.NoError(t, err)

	for _, table := range []string{"accounts", "posts", "users", "usernames"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestInitDBMongoModeOnlyAccounts(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "mongo", DSN: ":memory:"}}
	db, err := InitDB(cfg)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable("accounts"))
	assert.False(t, db.Migrator().HasTable("posts"))
}

func TestInitDBUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	assert.Error(t, err)
}

func TestNewRedis(t *testing.T) {
	rdb, err := NewRedis(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, rdb)

	mr := miniredis.RunT(t)
	rdb, err = NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	_ = rdb.Close()
}
