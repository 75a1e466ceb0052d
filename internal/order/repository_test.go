package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func placeOrder() *Order {
	return &Order{
		ID:              "order-1",
		BuyerID:         "buyer-1",
		TotalAmount:     27.5,
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		Items: []Item{
			{ID: "item-1", ProductID: "p1", ProductName: "Widget", Quantity: 2, UnitPrice: 10, TotalPrice: 20, SellerID: "s1"},
			{ID: "item-2", ProductID: "p2", ProductName: "Gadget", Quantity: 1, UnitPrice: 7.5, TotalPrice: 7.5, SellerID: "s2"},
		},
	}
}

func expectOrderInsert(mock pgxmock.PgxPoolIface, o *Order) {
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(o.ID, o.BuyerID, StatusPending, o.TotalAmount, o.ShippingAddress, o.PaymentMethod).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
}

func expectItemInsert(mock pgxmock.PgxPoolIface, o *Order, it *Item) {
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(it.ID, o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice, it.SellerID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestPlace_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	o := placeOrder()

	mock.ExpectBegin()
	expectOrderInsert(mock, o)
	for i := range o.Items {
		expectItemInsert(mock, o, &o.Items[i])
	}
	for _, it := range o.Items {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1 FOR UPDATE`)).
			WithArgs(it.ProductID).
			WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(it.Quantity + 3))
	}
	for _, it := range o.Items {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE products`)).
			WithArgs(it.ProductID, it.Quantity).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Place(context.Background(), o))
	require.False(t, o.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlace_StockConflictRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	o := placeOrder()

	mock.ExpectBegin()
	expectOrderInsert(mock, o)
	for i := range o.Items {
		expectItemInsert(mock, o, &o.Items[i])
	}
	// First product has one unit left; second is fine. Both are still
	// inspected so the conflict names every short line.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs("p2").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectRollback()

	err = repo.Place(context.Background(), o)

	var conflict *StockConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Shortages, 1)
	require.Equal(t, "p1", conflict.Shortages[0].ProductID)
	require.Equal(t, 2, conflict.Shortages[0].Requested)
	require.Equal(t, 1, conflict.Shortages[0].Available)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlace_MissingProductIsAShortage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	o := placeOrder()

	mock.ExpectBegin()
	expectOrderInsert(mock, o)
	for i := range o.Items {
		expectItemInsert(mock, o, &o.Items[i])
	}
	// p1 was deleted between the snapshot and the lock.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM products WHERE id = $1 FOR UPDATE`)).
		WithArgs("p2").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectRollback()

	err = repo.Place(context.Background(), o)

	var conflict *StockConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Shortages, 1)
	require.Equal(t, 0, conflict.Shortages[0].Available)
}

func TestPlace_ItemInsertFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	o := placeOrder()

	mock.ExpectBegin()
	expectOrderInsert(mock, o)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(o.Items[0].ID, o.ID, "p1", 2, 10.0, 20.0, "s1").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err = repo.Place(context.Background(), o)
	require.ErrorIs(t, err, ErrItemInsert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_LegalTransition(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT o.status FROM orders o`)).
		WithArgs("order-1", "seller-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusPending))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $2 WHERE id = $1`)).
		WithArgs("order-1", StatusConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), "seller-1", "order-1", StatusConfirmed))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT o.status FROM orders o`)).
		WithArgs("order-1", "seller-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusDelivered))
	mock.ExpectRollback()

	err = repo.UpdateStatus(context.Background(), "seller-1", "order-1", StatusCancelled)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	err = repo.UpdateStatus(context.Background(), "seller-1", "order-1", Status("archived"))
	require.ErrorIs(t, err, ErrBadTransition)
}
