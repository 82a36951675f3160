package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workforce-api/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	return db, mock
}

func TestPing_Success(t *testing.T) {
	db, mock := openMock(t)
	mock.ExpectPing()

	assert.NoError(t, Ping(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing_Failure(t *testing.T) {
	db, mock := openMock(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := Ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")
}

func TestDialector_UnsupportedDriver(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestDialector_KnownDrivers(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		d, err := Dialector(&config.Config{DBDriver: driver, DBHost: "localhost", DBPort: "1"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}
}

func TestMigrate_CreatesIndexesOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	SetDB(db)

	require.NoError(t, Migrate())
	// Second run must skip existing indexes
	require.NoError(t, MigrateDatabase(db))

	assert.True(t, db.Migrator().HasIndex("tasks", "idx_tasks_project_active"))
	assert.True(t, db.Migrator().HasIndex("users", "idx_users_login_active"))
}
