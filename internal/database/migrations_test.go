package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/rooms"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesEmptyPageNames(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&rooms.PageRecord{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	records := []rooms.PageRecord{
		{RoomCode: "ROOM1", PageID: "page-1", Name: "", ComponentsJSON: "[]", UpdatedAtSeconds: 1},
		{RoomCode: "ROOM1", PageID: "page-2", Position: 1, Name: "Perfil", ComponentsJSON: "[]", UpdatedAtSeconds: 1},
	}
	if err := database.Create(&records).Error; err != nil {
		testContext.Fatalf("failed to insert pages: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored []rooms.PageRecord
	if err := database.Where("room_code = ?", "ROOM1").Order("position ASC").Find(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload pages: %v", err)
	}
	if stored[0].Name != "page-1" {
		testContext.Fatalf("expected empty name to be replaced by page id, got %q", stored[0].Name)
	}
	if stored[1].Name != "Perfil" {
		testContext.Fatalf("expected named page to be untouched, got %q", stored[1].Name)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeEmptyPageNames).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := database.Model(&rooms.PageRecord{}).Where("page_id = ?", "page-1").Update("name", "").Error; err != nil {
		testContext.Fatalf("failed to reset name: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}
	var again rooms.PageRecord
	if err := database.Where("page_id = ?", "page-1").Take(&again).Error; err != nil {
		testContext.Fatalf("failed to reload page: %v", err)
	}
	if again.Name != "" {
		testContext.Fatalf("expected applied migration to run only once, got %q", again.Name)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "open.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	if !database.Migrator().HasTable(&rooms.PageRecord{}) {
		testContext.Fatalf("expected canvas_pages table")
	}
	if !database.Migrator().HasTable(&migrationRecord{}) {
		testContext.Fatalf("expected db_migrations table")
	}
}

func TestOpenValidatesConfig(testContext *testing.T) {
	if _, err := Open(Config{Driver: DriverSQLite}, nil); !errors.Is(err, errMissingPath) {
		testContext.Fatalf("expected missing path error, got %v", err)
	}
	if _, err := Open(Config{Driver: DriverPostgres}, nil); !errors.Is(err, errMissingDSN) {
		testContext.Fatalf("expected missing dsn error, got %v", err)
	}
	if _, err := Open(Config{Driver: "mysql"}, nil); !errors.Is(err, errUnknownDriver) {
		testContext.Fatalf("expected unknown driver error, got %v", err)
	}
}
