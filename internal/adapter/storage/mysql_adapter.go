package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/retail-checkout/internal/core/domain"
)

const mysqlDuplicateEntry = 1062

var ErrDuplicateOrder = errors.New("order already archived")

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, cart_id, total, created_at)
		VALUES (?, ?, ?, ?)`,
		order.ID(), order.CartID(), order.Total(), order.CreatedAt().UTC(),
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, description, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			order.ID(), line.ProductID, line.Description, line.UnitPrice, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", line.ProductID, err)
		}
	}

	return tx.Commit()
}
