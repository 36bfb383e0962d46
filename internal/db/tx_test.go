package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowershop/internal/db"
	"flowershop/internal/db/dbtest"
	"flowershop/internal/models"
)

func TestRunInTransaction_Commit(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()

	err := db.RunInTransaction(ctx, gdb, func(txCtx context.Context) error {
		_, ok := db.GetTx(txCtx)
		assert.True(t, ok, "expected transaction in context")
		return db.Conn(txCtx, gdb).Create(&models.Category{Name: "Roses"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunInTransaction_Rollback(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTransaction(ctx, gdb, func(txCtx context.Context) error {
		if err := db.Conn(txCtx, gdb).Create(&models.Category{Name: "Roses"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, gdb.Model(&models.Category{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunInTransaction_NestedReusesOuter(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()

	err := db.RunInTransaction(ctx, gdb, func(outerCtx context.Context) error {
		if err := db.Conn(outerCtx, gdb).Create(&models.Category{Name: "Roses"}).Error; err != nil {
			return err
		}
		return db.RunInTransaction(outerCtx, gdb, func(innerCtx context.Context) error {
			outerTx, _ := db.GetTx(outerCtx)
			innerTx, _ := db.GetTx(innerCtx)
			assert.Same(t, outerTx, innerTx)
			return db.Conn(innerCtx, gdb).Create(&models.Category{Name: "Tulips"}).Error
		})
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRunInTransaction_NestedRollback(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()

	err := db.RunInTransaction(ctx, gdb, func(outerCtx context.Context) error {
		if err := db.Conn(outerCtx, gdb).Create(&models.Category{Name: "Roses"}).Error; err != nil {
			return err
		}
		return db.RunInTransaction(outerCtx, gdb, func(innerCtx context.Context) error {
			if err := db.Conn(innerCtx, gdb).Create(&models.Category{Name: "Tulips"}).Error; err != nil {
				return err
			}
			return errors.New("inner failure")
		})
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Category{}).Count(&count).Error)
	assert.Zero(t, count, "outer insert must be rolled back too")
}

func TestConn_WithoutTransaction(t *testing.T) {
	gdb := dbtest.Open(t)
	_, ok := db.GetTx(context.Background())
	assert.False(t, ok)
	assert.NotNil(t, db.Conn(context.Background(), gdb))
}
