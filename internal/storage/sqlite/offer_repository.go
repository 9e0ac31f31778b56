// Package sqlite хранит офферы в SQLite в денормализованном виде:
// details и orders лежат в JSON-колонках, как в исходной схеме сервиса.
// Гонки на read-modify-write закрывает колонка version (optimistic locking).
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS payment_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	address TEXT NOT NULL UNIQUE,
	user_name TEXT NOT NULL,
	avatar TEXT NOT NULL,
	details TEXT NOT NULL,
	min_pkoin REAL NOT NULL,
	max_pkoin REAL NOT NULL,
	margin REAL NOT NULL,
	telegram TEXT NOT NULL,
	transfer_time TEXT NOT NULL,
	completed_orders INTEGER NOT NULL DEFAULT 0,
	orders TEXT NOT NULL DEFAULT '[]',
	version INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// Store оборачивает подключение к SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает файл базы (или :memory:) и инициализирует схему.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Последовательные записи: вложенный JSON переписывается целиком.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping проверяет доступность базы.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store is not initialized")
	}
	return s.db.Ping()
}

// Close закрывает подключение.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type offerRepositorySQLite struct {
	store *Store
}

// NewOfferRepository создаёт SQLite-реализацию OfferRepository.
func NewOfferRepository(store *Store) domain.OfferRepository {
	return &offerRepositorySQLite{store: store}
}

func (r *offerRepositorySQLite) Create(offer domain.Offer) (domain.Offer, error) {
	details, orders, err := marshalBlobs(offer)
	if err != nil {
		return domain.Offer{}, err
	}

	res, err := r.store.db.Exec(`
		INSERT INTO payment_data (
			address, user_name, avatar, details, min_pkoin, max_pkoin, margin,
			telegram, transfer_time, completed_orders, orders, version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		offer.Address, offer.UserName, offer.Avatar, details,
		offer.MinPkoin, offer.MaxPkoin, offer.Margin,
		offer.Telegram, offer.TransferTime, offer.CompletedOrders,
		orders, offer.Version, offer.CreatedAt, offer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Offer{}, domain.ErrOfferVersionConflict
		}
		return domain.Offer{}, fmt.Errorf("insert offer: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Offer{}, fmt.Errorf("last insert id: %w", err)
	}
	offer.ID = id

	return offer, nil
}

func (r *offerRepositorySQLite) GetByID(id int64) (domain.Offer, error) {
	return r.getOne(`WHERE id = ?`, id)
}

func (r *offerRepositorySQLite) GetByAddress(address string) (domain.Offer, error) {
	return r.getOne(`WHERE address = ?`, address)
}

func (r *offerRepositorySQLite) List() ([]domain.Offer, error) {
	rows, err := r.store.db.Query(offerSelect + ` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	offers := make([]domain.Offer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offer rows: %w", err)
	}

	return offers, nil
}

func (r *offerRepositorySQLite) Save(offer domain.Offer) error {
	details, orders, err := marshalBlobs(offer)
	if err != nil {
		return err
	}

	res, err := r.store.db.Exec(`
		UPDATE payment_data
		SET user_name = ?,
		    avatar = ?,
		    details = ?,
		    min_pkoin = ?,
		    max_pkoin = ?,
		    margin = ?,
		    telegram = ?,
		    transfer_time = ?,
		    completed_orders = ?,
		    orders = ?,
		    version = version + 1,
		    updated_at = ?
		WHERE id = ?
		  AND version = ?
	`,
		offer.UserName, offer.Avatar, details,
		offer.MinPkoin, offer.MaxPkoin, offer.Margin,
		offer.Telegram, offer.TransferTime, offer.CompletedOrders,
		orders, offer.UpdatedAt, offer.ID, offer.Version,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id int64
		err := r.store.db.QueryRow(`SELECT id FROM payment_data WHERE id = ?`, offer.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOfferNotFound
		}
		if err != nil {
			return fmt.Errorf("check offer exists: %w", err)
		}
		return domain.ErrOfferVersionConflict
	}

	return nil
}

const offerSelect = `
	SELECT id, address, user_name, avatar, details, min_pkoin, max_pkoin, margin,
	       telegram, transfer_time, completed_orders, orders, version, created_at, updated_at
	FROM payment_data
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *offerRepositorySQLite) getOne(where string, arg interface{}) (domain.Offer, error) {
	offer, err := scanOffer(r.store.db.QueryRow(offerSelect+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Offer{}, domain.ErrOfferNotFound
		}
		return domain.Offer{}, fmt.Errorf("select offer: %w", err)
	}
	return offer, nil
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var offer domain.Offer
	var details, orders string
	var createdAt, updatedAt time.Time

	if err := row.Scan(
		&offer.ID, &offer.Address, &offer.UserName, &offer.Avatar, &details,
		&offer.MinPkoin, &offer.MaxPkoin, &offer.Margin,
		&offer.Telegram, &offer.TransferTime, &offer.CompletedOrders,
		&orders, &offer.Version, &createdAt, &updatedAt,
	); err != nil {
		return domain.Offer{}, err
	}
	offer.CreatedAt = createdAt
	offer.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(details), &offer.Details); err != nil {
		return domain.Offer{}, fmt.Errorf("unmarshal offer details: %w", err)
	}
	if err := json.Unmarshal([]byte(orders), &offer.Orders); err != nil {
		return domain.Offer{}, fmt.Errorf("unmarshal offer orders: %w", err)
	}

	return offer, nil
}

func marshalBlobs(offer domain.Offer) (string, string, error) {
	details, err := json.Marshal(offer.Details)
	if err != nil {
		return "", "", fmt.Errorf("marshal offer details: %w", err)
	}
	ordersList := offer.Orders
	if ordersList == nil {
		ordersList = []domain.Order{}
	}
	orders, err := json.Marshal(ordersList)
	if err != nil {
		return "", "", fmt.Errorf("marshal offer orders: %w", err)
	}
	return string(details), string(orders), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ domain.OfferRepository = (*offerRepositorySQLite)(nil)
