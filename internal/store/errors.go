package store

import (
	"errors"
	"fmt"

	"trading_ledger/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// translateError maps driver and ORM errors onto ledger error kinds. Errors
// that already carry a kind pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205: // deadlock, lock wait timeout
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case 1062:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization failure, deadlock, lock not available
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case "23505":
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}
