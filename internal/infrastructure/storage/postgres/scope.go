package postgres

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"fuelops/internal/core/security"
)

// OwnershipCondition matches rows whose owner columns resolve to scope
// under the credential group, organization, user precedence.
func OwnershipCondition(scope security.Scope) squirrel.Sqlizer {
	switch scope.Kind {
	case security.ScopeCredentialGroup:
		return squirrel.Eq{"credential_group_id": scope.Value}
	case security.ScopeOrganization:
		return squirrel.Eq{"credential_group_id": "", "organization_name": scope.Value}
	case security.ScopeUser:
		return squirrel.Eq{"credential_group_id": "", "organization_name": "", "owner_user_id": scope.Value}
	default:
		// catalogs are never owned by the anonymous sentinel
		return squirrel.Expr("FALSE")
	}
}

// StampedScopeCondition matches rows that carry scope in scope_kind/scope_value.
func StampedScopeCondition(scope security.Scope) squirrel.Sqlizer {
	return squirrel.Eq{"scope_kind": string(scope.Kind), "scope_value": scope.Value}
}

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
