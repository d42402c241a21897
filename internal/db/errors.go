package db

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrInvalid is returned when input references rows that do not belong together.
	ErrInvalid = errors.New("invalid reference")
)

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "23503":
			return errors.Join(ErrConflict, err)
		case "22P02":
			// malformed uuid in a lookup never matches a row
			return errors.Join(ErrNotFound, err)
		}
	}
	return err
}

// requireRow turns an UPDATE or DELETE that touched nothing into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
