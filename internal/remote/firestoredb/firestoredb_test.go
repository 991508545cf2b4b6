package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(status.Error(codes.NotFound, "no such document")))
	assert.False(t, isNotFound(status.Error(codes.PermissionDenied, "denied")))
	assert.False(t, isNotFound(nil))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestIsAlreadyExists(t *testing.T) {
	assert.True(t, isAlreadyExists(status.Error(codes.AlreadyExists, "document exists")))
	assert.False(t, isAlreadyExists(status.Error(codes.NotFound, "missing")))
	assert.False(t, isAlreadyExists(nil))
}

func TestStopped(t *testing.T) {
	assert.True(t, stopped(iterator.Done))
	assert.True(t, stopped(fmt.Errorf("listen: %w", context.Canceled)))
	assert.True(t, stopped(status.Error(codes.Canceled, "stopped")))
	assert.False(t, stopped(status.Error(codes.Unavailable, "try later")))
}

func TestToDocumentMissing(t *testing.T) {
	assert.Nil(t, toDocument(nil))
}
