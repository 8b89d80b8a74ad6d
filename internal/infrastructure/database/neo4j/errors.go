package neo4j

import (
	stderrors "errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Server status codes that map onto domain errors.
const (
	codeEntityNotFound    = "Neo.ClientError.Statement.EntityNotFound"
	codeConstraintFailed  = "Neo.ClientError.Schema.ConstraintValidationFailed"
	codeLockClientStopped = "Neo.TransientError.Transaction.LockClientStopped"
)

// ClassifyError turns an error returned from a transaction into an *AppError.
// AppErrors raised by the work function pass through untouched. A node
// deleted by a concurrent transaction surfaces as a versioning conflict.
func ClassifyError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		return err
	}
	var ne *neo4j.Neo4jError
	if stderrors.As(err, &ne) {
		switch ne.Code {
		case codeEntityNotFound:
			return errors.VersioningConflict("Resource doesn't exist - it was likely deleted in a concurrent transaction.").
				WithCause(err)
		case codeConstraintFailed:
			return errors.Wrap(err, errors.ErrCodeConflict, msg).WithDetail(ne.Msg)
		case codeLockClientStopped:
			return errors.Wrap(err, errors.ErrCodeConflict, msg).WithDetail("lock client stopped")
		}
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}
