// Package blob хранит загруженные подтверждения оплаты на диске
// и возвращает ядру только ссылку вида /uploads/<имя файла>.
package blob

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

const refPrefix = "/uploads/"

// DiskStore сохраняет файлы в локальный каталог.
type DiskStore struct {
	dir string
}

// NewDiskStore создаёт каталог загрузок, если его нет.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir возвращает каталог, из которого раздаются файлы.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Store записывает файл под уникальным именем <field>-<ts>-<rand><ext>
// и возвращает ссылку для сохранения в ордере.
func (s *DiskStore) Store(fieldName, fileName string, r io.Reader) (string, error) {
	suffix := fmt.Sprintf("%d-%d", time.Now().UnixMilli(), rand.Intn(1_000_000_000))
	name := fmt.Sprintf("%s-%s%s", fieldName, suffix, filepath.Ext(fileName))

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return refPrefix + name, nil
}

var _ domain.BlobStore = (*DiskStore)(nil)
