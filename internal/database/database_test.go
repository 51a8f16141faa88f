package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/model"
)

func TestGetSqliteDB_SetupMigratesSchema(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Ping(db))
	require.NoError(t, Setup(db))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	var info model.RecorderInfo
	require.NoError(t, db.First(&info).Error)
	assert.Equal(t, "hilsim", info.Name)
	assert.Equal(t, Version, info.Version)
}

func TestSetup_Idempotent(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Setup(db))
	require.NoError(t, Setup(db))

	var count int64
	require.NoError(t, db.Model(&model.RecorderInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	require.NoError(t, Setup(db))
	require.NoError(t, db.Create(&model.Flight{StartedAt: time.Now(), ParamsFile: "x.json"}).Error)

	out := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, DumpMemoryDBToDisk(db, out))
	// a second dump replaces the file
	require.NoError(t, DumpMemoryDBToDisk(db, out))

	_, err = os.Stat(out)
	require.NoError(t, err)

	dumped, err := GetSqliteDB(out)
	require.NoError(t, err)
	var f model.Flight
	require.NoError(t, dumped.First(&f).Error)
	assert.Equal(t, "x.json", f.ParamsFile)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestMySQLDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.username", "sim")
	viper.Set("db.password", "secret")
	viper.Set("db.host", "db.local")
	viper.Set("db.mysqlPort", "3307")
	viper.Set("db.database", "flights")

	assert.Equal(t, "sim:secret@tcp(db.local:3307)/flights?charset=utf8mb4&parseTime=True&loc=UTC", MySQLDSN())
}
