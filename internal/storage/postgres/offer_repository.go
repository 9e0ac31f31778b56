package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type offerRepository struct {
	db *sql.DB
}

// NewOfferRepository создаёт PostgreSQL-реализацию OfferRepository.
// Ордера лежат в дочерней таблице offer_orders с порядковым номером position,
// но читаются и сохраняются всегда вместе с оффером.
func NewOfferRepository(store *Store) domain.OfferRepository {
	return &offerRepository{db: store.DB()}
}

func (r *offerRepository) Create(offer domain.Offer) (domain.Offer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	details, err := json.Marshal(offer.Details)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("marshal offer details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO offers (
			address, user_name, avatar, details, min_pkoin, max_pkoin, margin,
			telegram, transfer_time, completed_orders, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`,
		offer.Address, offer.UserName, offer.Avatar, details,
		offer.MinPkoin, offer.MaxPkoin, offer.Margin,
		offer.Telegram, offer.TransferTime, offer.CompletedOrders,
		offer.Version, offer.CreatedAt, offer.UpdatedAt,
	).Scan(&offer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Offer{}, domain.ErrOfferVersionConflict
		}
		return domain.Offer{}, fmt.Errorf("insert offer: %w", err)
	}

	if err = upsertOrders(ctx, tx, offer.ID, offer.Orders); err != nil {
		return domain.Offer{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Offer{}, fmt.Errorf("commit create offer: %w", err)
	}

	return offer, nil
}

func (r *offerRepository) GetByID(id int64) (domain.Offer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *offerRepository) GetByAddress(address string) (domain.Offer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getOne(ctx, `WHERE address = $1`, address)
}

func (r *offerRepository) List() ([]domain.Offer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, offerSelect+` ORDER BY id ASC`)
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

	for i := range offers {
		orders, err := r.loadOrders(ctx, offers[i].ID)
		if err != nil {
			return nil, err
		}
		offers[i].Orders = orders
	}

	return offers, nil
}

func (r *offerRepository) Save(offer domain.Offer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	details, err := json.Marshal(offer.Details)
	if err != nil {
		return fmt.Errorf("marshal offer details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE offers
		SET user_name = $1,
		    avatar = $2,
		    details = $3,
		    min_pkoin = $4,
		    max_pkoin = $5,
		    margin = $6,
		    telegram = $7,
		    transfer_time = $8,
		    completed_orders = $9,
		    version = version + 1,
		    updated_at = $10
		WHERE id = $11
		  AND version = $12
	`,
		offer.UserName, offer.Avatar, details,
		offer.MinPkoin, offer.MaxPkoin, offer.Margin,
		offer.Telegram, offer.TransferTime, offer.CompletedOrders,
		offer.UpdatedAt, offer.ID, offer.Version,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		exists, err = r.offerExistsTx(ctx, tx, offer.ID)
		if err != nil {
			return err
		}
		// err попадает в deferred rollback: транзакция не повиснет открытой.
		if !exists {
			err = domain.ErrOfferNotFound
			return err
		}
		err = domain.ErrOfferVersionConflict
		return err
	}

	if err = upsertOrders(ctx, tx, offer.ID, offer.Orders); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save offer: %w", err)
	}

	return nil
}

const offerSelect = `
	SELECT id, address, user_name, avatar, details, min_pkoin, max_pkoin, margin,
	       telegram, transfer_time, completed_orders, version, created_at, updated_at
	FROM offers
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var offer domain.Offer
	var details []byte

	if err := row.Scan(
		&offer.ID, &offer.Address, &offer.UserName, &offer.Avatar, &details,
		&offer.MinPkoin, &offer.MaxPkoin, &offer.Margin,
		&offer.Telegram, &offer.TransferTime, &offer.CompletedOrders,
		&offer.Version, &offer.CreatedAt, &offer.UpdatedAt,
	); err != nil {
		return domain.Offer{}, err
	}

	if err := json.Unmarshal(details, &offer.Details); err != nil {
		return domain.Offer{}, fmt.Errorf("unmarshal offer details: %w", err)
	}

	return offer, nil
}

func (r *offerRepository) getOne(ctx context.Context, where string, arg interface{}) (domain.Offer, error) {
	offer, err := scanOffer(r.db.QueryRowContext(ctx, offerSelect+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Offer{}, domain.ErrOfferNotFound
		}
		return domain.Offer{}, fmt.Errorf("select offer: %w", err)
	}

	orders, err := r.loadOrders(ctx, offer.ID)
	if err != nil {
		return domain.Offer{}, err
	}
	offer.Orders = orders

	return offer, nil
}

func (r *offerRepository) loadOrders(ctx context.Context, offerID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, counterparty_address, unit_price, fiat_price, fiat_currency,
		       payment_method, currency, payment_proof, status, created_at
		FROM offer_orders
		WHERE offer_id = $1
		ORDER BY position ASC
	`, offerID)
	if err != nil {
		return nil, fmt.Errorf("load offer orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var ord domain.Order
		var status string
		if err := rows.Scan(
			&ord.ID, &ord.CounterpartyAddress, &ord.UnitPrice, &ord.FiatPrice,
			&ord.FiatCurrency, &ord.PaymentMethod, &ord.Currency,
			&ord.PaymentProof, &status, &ord.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan offer order: %w", err)
		}
		ord.Status = domain.OrderStatus(status)
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offer orders: %w", err)
	}

	return orders, nil
}

// upsertOrders дописывает новые ордера и обновляет статус/пруф существующих.
// Последовательность append-only, поэтому position берётся из индекса в списке.
func upsertOrders(ctx context.Context, tx *sql.Tx, offerID int64, orders []domain.Order) error {
	for pos, ord := range orders {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO offer_orders (
				id, offer_id, position, counterparty_address, unit_price, fiat_price,
				fiat_currency, payment_method, currency, payment_proof, status, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO UPDATE
			SET status = EXCLUDED.status,
			    payment_proof = EXCLUDED.payment_proof
		`,
			ord.ID, offerID, pos, ord.CounterpartyAddress, ord.UnitPrice, ord.FiatPrice,
			ord.FiatCurrency, ord.PaymentMethod, ord.Currency, ord.PaymentProof,
			string(ord.Status), ord.CreatedAt,
		); err != nil {
			return fmt.Errorf("upsert offer order: %w", err)
		}
	}
	return nil
}

func (r *offerRepository) offerExistsTx(ctx context.Context, tx *sql.Tx, offerID int64) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM offers WHERE id = $1`, offerID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check offer exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OfferRepository = (*offerRepository)(nil)
