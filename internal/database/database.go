package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/samspeech/internal/logger"
	_ "modernc.org/sqlite"
)

// DB 是 samspeech 的 SQLite 数据库连接，只保存角色等配置数据，不记录语音历史。
type DB struct {
	*sql.DB
	path string
}

// DefaultPath 返回默认数据库路径 ~/.samspeech/samspeech.db。
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	if home != "" {
		return filepath.Join(home, ".samspeech", "samspeech.db")
	}
	return "./samspeech.db"
}

// Open 打开或创建数据库。dbPath 为空时使用 DefaultPath。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// WAL 模式下 CLI 与 shell 可同时访问
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	logger.Debugf("[database] 数据库已打开: %s", dbPath)
	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 运行数据库迁移。
func (db *DB) Migrate() error {
	migrations := []string{
		// 自定义角色表
		`CREATE TABLE IF NOT EXISTS voice_characters (
			name TEXT PRIMARY KEY,
			speed INTEGER NOT NULL,
			pitch INTEGER NOT NULL,
			throat INTEGER NOT NULL,
			mouth INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	logger.Debug("[database] 数据库迁移完成")
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
