package voice

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iabetor/samspeech/internal/database"
	"github.com/iabetor/samspeech/internal/logger"
	"github.com/iabetor/samspeech/internal/tts"
)

// Store 把自定义角色保存在 SQLite 的 voice_characters 表中。
type Store struct {
	db *database.DB
}

// NewStore 基于已迁移的数据库创建角色存储。
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Put 插入或更新角色。
func (s *Store) Put(ch Character) error {
	_, err := s.db.Exec(`INSERT INTO voice_characters (name, speed, pitch, throat, mouth)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			speed = excluded.speed,
			pitch = excluded.pitch,
			throat = excluded.throat,
			mouth = excluded.mouth,
			updated_at = CURRENT_TIMESTAMP`,
		ch.Name, ch.Params.Speed, ch.Params.Pitch, ch.Params.Throat, ch.Params.Mouth)
	if err != nil {
		return fmt.Errorf("保存角色 %s 失败: %w", ch.Name, err)
	}
	logger.Infof("[voice] 已保存角色: %s", ch.Name)
	return nil
}

// Get 按名称读取角色。
func (s *Store) Get(name string) (Character, bool, error) {
	row := s.db.QueryRow(`SELECT name, speed, pitch, throat, mouth FROM voice_characters WHERE name = ?`, name)

	var ch Character
	err := row.Scan(&ch.Name, &ch.Params.Speed, &ch.Params.Pitch, &ch.Params.Throat, &ch.Params.Mouth)
	if errors.Is(err, sql.ErrNoRows) {
		return Character{}, false, nil
	}
	if err != nil {
		return Character{}, false, fmt.Errorf("读取角色 %s 失败: %w", name, err)
	}
	return ch, true, nil
}

// Delete 删除角色，返回是否有记录被删除。
func (s *Store) Delete(name string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM voice_characters WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("删除角色 %s 失败: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List 返回所有自定义角色。
func (s *Store) List() ([]Character, error) {
	rows, err := s.db.Query(`SELECT name, speed, pitch, throat, mouth FROM voice_characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("查询角色失败: %w", err)
	}
	defer rows.Close()

	var out []Character
	for rows.Next() {
		var ch Character
		var p tts.Params
		if err := rows.Scan(&ch.Name, &p.Speed, &p.Pitch, &p.Throat, &p.Mouth); err != nil {
			return nil, err
		}
		ch.Params = p
		out = append(out, ch)
	}
	return out, rows.Err()
}
