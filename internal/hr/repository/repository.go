// Package repository persists HR entities in PostgreSQL via sqlx. Every query
// is written against sqlx.ExtContext so the same code serves plain requests
// and the import unit of work.
package repository

import (
	"database/sql"
	stderrors "errors"

	"github.com/peoplehub/peoplehub-backend/pkg/database"
)

// mapWriteError turns constraint violations into AppErrors and passes
// everything else through unchanged.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if appErr := database.MapPQError(err); appErr != nil {
		appErr.Err = err
		return appErr
	}
	return err
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}
