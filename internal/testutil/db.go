// Package testutil 提供測試共用的輔助函式。
package testutil

import (
	"path/filepath"
	"testing"

	"debateai/internal/models"
	"debateai/internal/storage"
	"debateai/pkg/config"
)

// OpenDB 在暫存目錄建立已遷移的 sqlite 資料庫，測試結束時自動關閉
func OpenDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(config.DBConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "debateai.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}
