package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/matcha/internal/errors"
)

func TestMap(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("like: %w", svcErr.ErrSelfTarget), codes.InvalidArgument},
		{svcErr.ErrEmptyMessage, codes.InvalidArgument},
		{fmt.Errorf("post: %w", svcErr.ErrNotMatched), codes.PermissionDenied},
		{svcErr.ErrBlocked, codes.PermissionDenied},
		{svcErr.ErrNoPhoto, codes.FailedPrecondition},
		{svcErr.ErrUnauthenticated, codes.Unauthenticated},
		{fmt.Errorf("load user: %w", gorm.ErrRecordNotFound), codes.NotFound},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{fmt.Errorf("boom"), codes.Internal},
		{status.Error(codes.AlreadyExists, "x"), codes.AlreadyExists},
	}
	for _, tc := range cases {
		st, ok := status.FromError(svcErr.Map(tc.err))
		assert.True(t, ok)
		assert.Equal(t, tc.want, st.Code(), "error: %v", tc.err)
	}

	assert.NoError(t, svcErr.Map(nil))
}
