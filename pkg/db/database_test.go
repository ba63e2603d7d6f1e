package db

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	db, err := Open(context.Background(), "", Pool{})
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Ping(context.Background(), gdb))
	require.NoError(t, Close(gdb))
	assert.Error(t, Ping(context.Background(), gdb))
}

func TestPoolDefaults(t *testing.T) {
	t.Parallel()

	p := Pool{MaxOpenConns: 8}.withDefaults()
	assert.Equal(t, 8, p.MaxOpenConns)
	assert.Equal(t, 4, p.MaxIdleConns)
	assert.Positive(t, p.ConnMaxLifetime)
	assert.Positive(t, p.SlowQuery)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	p.apply(sqlDB)
	assert.Equal(t, 8, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, Close(gdb))
}
