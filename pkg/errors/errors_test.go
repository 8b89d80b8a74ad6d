package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"not found", errors.ErrCodeNotFound, "No ObjectiveTemplateRoot with UID 'OT_1' found"},
		{"business logic", errors.ErrCodeBusinessLogic, "Unsupported filtering parameter: foo"},
		{"versioning conflict", errors.ErrCodeVersioningConflict, "resource doesn't exist"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeNotFound, "missing")
	assert.Equal(t, "[COMMON_005] missing", ae.Error())
	assert.Equal(t, "[COMMON_005] missing: uid=OT_1", ae.WithDetail("uid=OT_1").Error())
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	wrapped := errors.Wrap(root, errors.ErrCodeDatabaseError, "list query failed")

	require.NotNil(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, root))
	assert.Equal(t, errors.ErrCodeDatabaseError, wrapped.Code)
}

func TestWrap_UnknownKeepsOriginalCode(t *testing.T) {
	t.Parallel()

	inner := errors.VersioningConflict("deleted concurrently")
	outer := errors.Wrap(inner, errors.CodeUnknown, "fetch failed")

	assert.Equal(t, errors.ErrCodeVersioningConflict, outer.Code)
	assert.True(t, errors.IsVersioningConflict(outer))
}

func TestIsCode_WalksChain(t *testing.T) {
	t.Parallel()

	inner := errors.NotFound("no root")
	mid := fmt.Errorf("resolving indication: %w", inner)
	outer := errors.Wrap(mid, errors.ErrCodeRelatedNotFound, "patch failed")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeRelatedNotFound))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeNotFound))
	assert.True(t, errors.IsNotFound(outer))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeValidation))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.ErrCodeNotFound))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeNotFound))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("x")))
	assert.Equal(t, errors.ErrCodeBusinessLogic, errors.GetCode(errors.BusinessLogic("bad sort")))
}

func TestFactories(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  *errors.AppError
		code errors.ErrorCode
	}{
		{errors.NotFound("a"), errors.ErrCodeNotFound},
		{errors.InvalidParam("b"), errors.ErrCodeBadRequest},
		{errors.BusinessLogic("c"), errors.ErrCodeBusinessLogic},
		{errors.Validation("d"), errors.ErrCodeValidation},
		{errors.VersioningConflict("e"), errors.ErrCodeVersioningConflict},
		{errors.NotImplemented("f"), errors.ErrCodeNotImplemented},
		{errors.Conflict("g"), errors.ErrCodeConflict},
		{errors.Internal("h"), errors.ErrCodeInternal},
		{errors.Newf(errors.ErrCodeUnknownKind, "kind %q", "x"), errors.ErrCodeUnknownKind},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.NotEmpty(t, tc.err.Message)
	}
}

func TestWithCause_NilSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
	assert.Nil(t, ae.WithDetail("x"))

	base := errors.Internal("boom")
	cause := stderrors.New("driver closed")
	withCause := base.WithCause(cause)
	assert.Nil(t, base.Cause, "receiver must not be mutated")
	assert.Same(t, cause, withCause.Cause)
}
