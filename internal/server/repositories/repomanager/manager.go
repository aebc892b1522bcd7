// Package repomanager wires concrete repository implementations to database
// handles and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"authkeeper/internal/dbx"
	"authkeeper/internal/server/repositories/refreshtokens"
	"authkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
