package store

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "noop"))
	assert.Equal(t, ErrNotFound, translate(gorm.ErrRecordNotFound, "get user"))
	assert.Equal(t, ErrDuplicate, translate(gorm.ErrDuplicatedKey, "create user"))
	assert.Equal(t, ErrDuplicate, translate(errors.Wrap(gorm.ErrDuplicatedKey, "insert"), "create review"))

	boom := errors.New("connection reset")
	err := translate(boom, "lock user")
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "lock user: connection reset")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAffected(t *testing.T) {
	assert.Equal(t, ErrNotFound, affected(&gorm.DB{RowsAffected: 0}, "delete child"))
	assert.NoError(t, affected(&gorm.DB{RowsAffected: 1}, "delete child"))
	assert.Equal(t, ErrDuplicate, affected(&gorm.DB{Error: gorm.ErrDuplicatedKey}, "update enrollment status"))
}
