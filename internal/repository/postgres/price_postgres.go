package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/repository"
)

// PriceRepo — репозиторий для работы с таблицей цен (prices).
type PriceRepo struct {
	db *pgxpool.Pool
}

// NewPriceRepository - Создаёт новый репозиторий цен на основе пула соединений.
func NewPriceRepository(db *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{db: db}
}

// SaveSnapshot - Сохраняет успешную цену в таблицу prices.
func (r *PriceRepo) SaveSnapshot(ctx context.Context, s domain.Snapshot) error {
	query := `
            INSERT INTO prices (source, value, fetched_at)
            VALUES ($1, $2, $3)
            `

	_, err := r.db.Exec(ctx, query, s.Source, s.Value, s.FetchedAt)
	return err
}

// LatestSnapshot - Последняя сохранённая цена из любого источника.
func (r *PriceRepo) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	query := `
        SELECT source, value, fetched_at
        FROM prices
        ORDER BY fetched_at DESC
        LIMIT 1
    `
	row := r.db.QueryRow(ctx, query)

	var s domain.Snapshot
	err := row.Scan(&s.Source, &s.Value, &s.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SnapshotsSince - Цены начиная с момента since, от новых к старым.
func (r *PriceRepo) SnapshotsSince(ctx context.Context, since time.Time, limit int) ([]domain.Snapshot, error) {
	query := `
        SELECT source, value, fetched_at
        FROM prices
        WHERE fetched_at >= $1
        ORDER BY fetched_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Snapshot, 0, limit)
	for rows.Next() {
		var s domain.Snapshot
		if err := rows.Scan(&s.Source, &s.Value, &s.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
