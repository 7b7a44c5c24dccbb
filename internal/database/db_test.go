package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("admin", "s3cret", "db.local", "3306", "civeni")

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "admin", c.User)
	require.Equal(t, "s3cret", c.Passwd)
	require.Equal(t, "db.local:3306", c.Addr)
	require.Equal(t, "civeni", c.DBName)
	require.True(t, c.ParseTime)
	require.Equal(t, "UTC", c.Loc.String())
}
