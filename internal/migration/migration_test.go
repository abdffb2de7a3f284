package migration

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	billdomain "github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var migratedTables = []string{"products", "bills", "bill_items", "bill_sequences", "metal_rates"}

func TestMigrateCreatesTablesOnSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jewelbill.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	for _, table := range migratedTables {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestMigrateTwiceOnSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jewelbill.db")

	first, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(first))
	require.NoError(t, first.Create(&billdomain.BillSequence{BillDate: "20250819", LastSeq: 4, UpdatedAt: time.Now()}).Error)
	sqlDB, err := first.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	second, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(second))
	require.NoError(t, Migrate(second))

	for _, table := range migratedTables {
		assert.True(t, second.Migrator().HasTable(table), table)
	}
	var seq billdomain.BillSequence
	require.NoError(t, second.First(&seq, "bill_date = ?", "20250819").Error)
	assert.Equal(t, int64(4), seq.LastSeq)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 2, ups)
	assert.Equal(t, ups, downs)
}

func TestMigrateRequiresHandle(t *testing.T) {
	assert.Error(t, Migrate(nil))
	assert.Error(t, RunMigrations(nil))
}
