package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestSequentialRunner(t *testing.T) {
	runner := SequentialRunner{}

	called := false
	err := runner.Run(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	wantErr := errors.New("boom")
	err = runner.Run(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestIsTxnUnsupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "illegal operation code",
			err:  mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"},
			want: true,
		},
		{
			name: "illegal operation name",
			err:  mongo.CommandError{Code: 20, Name: "IllegalOperation"},
			want: true,
		},
		{
			name: "wrapped standalone message",
			err:  errors.New("(IllegalOperation) Transaction numbers are only allowed on a replica set member or mongos"),
			want: true,
		},
		{
			name: "ordinary command error",
			err:  mongo.CommandError{Code: 11000, Message: "duplicate key"},
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTxnUnsupported(tt.err))
		})
	}
}
