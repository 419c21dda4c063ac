package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "businesses_slug_key"`), true},
		{errors.New("Error 1062 (23000): Duplicate entry"), true},
		{errors.New("UNIQUE constraint failed: businesses.slug"), true},
		{errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err), fmt.Sprint(tc.err))
	}
}
