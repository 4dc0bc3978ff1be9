package sale_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jvillar/tienda/internal/audit"
	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/sale"
)

var testPolicy = sale.Policy{
	VoidWindow:      24 * time.Hour,
	MinReasonLen:    5,
	DefaultSellerID: uuid.MustParse("00000000-0000-0000-0000-000000000001"),
}

func seller() auth.Actor {
	return auth.Actor{ID: uuid.New(), Name: "ana", Role: auth.RoleSeller}
}

func activeProduct(price string, stock int) *catalog.Product {
	return &catalog.Product{
		ID:            uuid.New(),
		Name:          "product",
		UnitPrice:     decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

func TestService_CreateSale_TotalsAndChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockCheckoutTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	productA := activeProduct("10.00", 10)
	productB := activeProduct("5.00", 10)

	repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ProductForSale(gomock.Any(), productA.ID).Return(productA, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), productA.ID, 2).Return(nil)
	tx.EXPECT().ProductForSale(gomock.Any(), productB.ID).Return(productB, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), productB.ID, 1).Return(nil)
	tx.EXPECT().InsertSale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *sale.Sale) error {
			s.ID = uuid.New()
			s.CreatedAt = time.Now()
			return nil
		})
	tx.EXPECT().InsertLines(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.CreateSale(context.Background(), sale.CreateParams{
		CustomerName: "Maria Perez",
		Lines: []sale.LineInput{
			{ProductID: productA.ID, Quantity: 2},
			{ProductID: productB.ID, Quantity: 1},
		},
		PaymentMethod:  sale.MethodCash,
		AmountTendered: decimal.RequireFromString("30.00"),
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("25.00")), "total = %s", got.Total)
	assert.True(t, got.ChangeDue.Equal(decimal.RequireFromString("5.00")), "change = %s", got.ChangeDue)
	assert.Equal(t, sale.StatusActive, got.Status)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, got.Lines[1].Subtotal.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, testPolicy.DefaultSellerID, got.CreatedBy)
}

func TestService_CreateSale_InsufficientPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockCheckoutTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	productA := activeProduct("10.00", 10)
	productB := activeProduct("5.00", 10)

	// Both reservations happen, then the payment check fails and the
	// deferred rollback undoes them. No sale row is ever written.
	repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ProductForSale(gomock.Any(), productA.ID).Return(productA, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), productA.ID, 2).Return(nil)
	tx.EXPECT().ProductForSale(gomock.Any(), productB.ID).Return(productB, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), productB.ID, 1).Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.CreateSale(context.Background(), sale.CreateParams{
		Lines: []sale.LineInput{
			{ProductID: productA.ID, Quantity: 2},
			{ProductID: productB.ID, Quantity: 1},
		},
		PaymentMethod:  sale.MethodCash,
		AmountTendered: decimal.RequireFromString("20.00"),
	})

	require.ErrorIs(t, err, sale.ErrInsufficientPayment)
	assert.Nil(t, got)
}

func TestService_CreateSale_InsufficientStockRollsBackEarlierLines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockCheckoutTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	productA := activeProduct("10.00", 10)
	productB := activeProduct("5.00", 3)

	repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ProductForSale(gomock.Any(), productA.ID).Return(productA, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), productA.ID, 1).Return(nil)
	tx.EXPECT().ProductForSale(gomock.Any(), productB.ID).Return(productB, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), productB.ID, 5).Return(sale.ErrInsufficientStock)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.CreateSale(context.Background(), sale.CreateParams{
		Lines: []sale.LineInput{
			{ProductID: productA.ID, Quantity: 1},
			{ProductID: productB.ID, Quantity: 5},
		},
		PaymentMethod:  sale.MethodCard,
		AmountTendered: decimal.RequireFromString("100.00"),
	})

	require.ErrorIs(t, err, sale.ErrInsufficientStock)
	assert.Nil(t, got)
}

func TestService_CreateSale_ProductUnavailable(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(tx *sale.MockCheckoutTx, id uuid.UUID)
	}{
		{
			name: "Missing",
			setupMock: func(tx *sale.MockCheckoutTx, id uuid.UUID) {
				tx.EXPECT().ProductForSale(gomock.Any(), id).Return(nil, catalog.ErrNotFound)
			},
		},
		{
			name: "Inactive",
			setupMock: func(tx *sale.MockCheckoutTx, id uuid.UUID) {
				inactive := activeProduct("10.00", 10)
				inactive.ID = id
				inactive.IsActive = false
				tx.EXPECT().ProductForSale(gomock.Any(), id).Return(inactive, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := sale.NewMockRepository(ctrl)
			tx := sale.NewMockCheckoutTx(ctrl)
			svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

			productID := uuid.New()

			repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
			tt.setupMock(tx, productID)
			tx.EXPECT().Rollback().Return(nil)

			got, err := svc.CreateSale(context.Background(), sale.CreateParams{
				Lines:          []sale.LineInput{{ProductID: productID, Quantity: 1}},
				PaymentMethod:  sale.MethodCash,
				AmountTendered: decimal.RequireFromString("10.00"),
			})

			require.ErrorIs(t, err, sale.ErrProductUnavailable)
			assert.Nil(t, got)
		})
	}
}

func TestService_CreateSale_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params sale.CreateParams
	}{
		{
			name: "NoLines",
			params: sale.CreateParams{
				PaymentMethod:  sale.MethodCash,
				AmountTendered: decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "ZeroQuantity",
			params: sale.CreateParams{
				Lines:          []sale.LineInput{{ProductID: uuid.New(), Quantity: 0}},
				PaymentMethod:  sale.MethodCash,
				AmountTendered: decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "NilProductID",
			params: sale.CreateParams{
				Lines:          []sale.LineInput{{Quantity: 1}},
				PaymentMethod:  sale.MethodCash,
				AmountTendered: decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "UnknownPaymentMethod",
			params: sale.CreateParams{
				Lines:          []sale.LineInput{{ProductID: uuid.New(), Quantity: 1}},
				PaymentMethod:  sale.PaymentMethod("crypto"),
				AmountTendered: decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "NegativeTendered",
			params: sale.CreateParams{
				Lines:          []sale.LineInput{{ProductID: uuid.New(), Quantity: 1}},
				PaymentMethod:  sale.MethodCash,
				AmountTendered: decimal.RequireFromString("-1.00"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No repository interaction: validation rejects before any
			// transaction starts.
			repo := sale.NewMockRepository(ctrl)
			svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

			got, err := svc.CreateSale(context.Background(), tt.params)

			require.ErrorIs(t, err, sale.ErrValidation)
			assert.Nil(t, got)
		})
	}
}

func TestService_CreateSale_OrderLinkage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockCheckoutTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	product := activeProduct("7.50", 4)
	orderID := uuid.New()
	actorID := uuid.New()
	saleID := uuid.New()

	repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ProductForSale(gomock.Any(), product.ID).Return(product, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), product.ID, 2).Return(nil)
	tx.EXPECT().InsertSale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *sale.Sale) error {
			s.ID = saleID
			s.CreatedAt = time.Now()
			return nil
		})
	tx.EXPECT().InsertLines(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().FulfillOrder(gomock.Any(), orderID, saleID).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.CreateSale(context.Background(), sale.CreateParams{
		Lines:          []sale.LineInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:  sale.MethodTransfer,
		AmountTendered: decimal.RequireFromString("15.00"),
		OrderID:        &orderID,
		CreatedBy:      &actorID,
	})

	require.NoError(t, err)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, orderID, *got.OrderID)
	assert.Equal(t, actorID, got.CreatedBy)
}

func TestService_CreateSale_PersistenceFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockCheckoutTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	product := activeProduct("10.00", 5)

	repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ProductForSale(gomock.Any(), product.ID).Return(product, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), product.ID, 1).Return(nil)
	tx.EXPECT().InsertSale(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.CreateSale(context.Background(), sale.CreateParams{
		Lines:          []sale.LineInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:  sale.MethodCash,
		AmountTendered: decimal.RequireFromString("10.00"),
	})

	require.Error(t, err)
	assert.Nil(t, got)
}

func TestService_CreateSale_RecordsAudit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockCheckoutTx(ctrl)
	auditor := sale.NewMockAuditor(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), auditor, testPolicy)

	product := activeProduct("2.00", 5)

	repo.EXPECT().BeginCheckout(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ProductForSale(gomock.Any(), product.ID).Return(product, nil)
	tx.EXPECT().ReserveStock(gomock.Any(), product.ID, 1).Return(nil)
	tx.EXPECT().InsertSale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *sale.Sale) error {
			s.ID = uuid.New()
			s.CreatedAt = time.Now()
			return nil
		})
	tx.EXPECT().InsertLines(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)
	auditor.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			assert.Equal(t, "sale.create", e.Action)
			assert.Equal(t, "sale", e.Entity)
			return nil
		})

	_, err := svc.CreateSale(context.Background(), sale.CreateParams{
		Lines:          []sale.LineInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:  sale.MethodMobileWallet,
		AmountTendered: decimal.RequireFromString("2.00"),
	})

	require.NoError(t, err)
}

func voidableSale(createdAt time.Time) *sale.Sale {
	saleID := uuid.New()
	productID := uuid.New()

	return &sale.Sale{
		ID:             saleID,
		CreatedBy:      uuid.New(),
		PaymentMethod:  sale.MethodCash,
		AmountTendered: decimal.RequireFromString("30.00"),
		ChangeDue:      decimal.RequireFromString("5.00"),
		Total:          decimal.RequireFromString("25.00"),
		Status:         sale.StatusActive,
		CreatedAt:      createdAt,
		Lines: []sale.Line{
			{
				SaleID:            saleID,
				ProductID:         productID,
				Quantity:          2,
				UnitPriceSnapshot: decimal.RequireFromString("12.50"),
				Subtotal:          decimal.RequireFromString("25.00"),
			},
		},
	}
}

func TestService_VoidSale_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockVoidTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	existing := voidableSale(time.Now().Add(-1 * time.Hour))
	actor := seller()

	repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
	tx.EXPECT().SaleForUpdate(gomock.Any(), existing.ID).Return(existing, nil)
	tx.EXPECT().ReleaseStock(gomock.Any(), existing.Lines[0].ProductID, 2).Return(nil)
	tx.EXPECT().MarkVoided(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.VoidSale(context.Background(), existing.ID, actor, "wrong item")

	require.NoError(t, err)
	assert.Equal(t, sale.StatusVoided, got.Status)
	require.NotNil(t, got.VoidedBy)
	assert.Equal(t, actor.ID, *got.VoidedBy)
	require.NotNil(t, got.VoidedAt)
	assert.Equal(t, "wrong item", got.VoidReason)
}

func TestService_VoidSale_AlreadyVoided(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockVoidTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	existing := voidableSale(time.Now().Add(-1 * time.Hour))
	existing.Status = sale.StatusVoided

	repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
	tx.EXPECT().SaleForUpdate(gomock.Any(), existing.ID).Return(existing, nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.VoidSale(context.Background(), existing.ID, seller(), "wrong item")

	require.ErrorIs(t, err, sale.ErrAlreadyVoided)
	assert.Nil(t, got)
}

func TestService_VoidSale_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockVoidTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	saleID := uuid.New()

	repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
	tx.EXPECT().SaleForUpdate(gomock.Any(), saleID).Return(nil, sale.ErrNotFound)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.VoidSale(context.Background(), saleID, seller(), "wrong item")

	require.ErrorIs(t, err, sale.ErrNotFound)
	assert.Nil(t, got)
}

func TestService_VoidSale_Unauthorized(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockVoidTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	existing := voidableSale(time.Now().Add(-1 * time.Hour))
	viewer := auth.Actor{ID: uuid.New(), Name: "vic", Role: auth.RoleViewer}

	repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
	tx.EXPECT().SaleForUpdate(gomock.Any(), existing.ID).Return(existing, nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.VoidSale(context.Background(), existing.ID, viewer, "wrong item")

	require.ErrorIs(t, err, sale.ErrUnauthorized)
	assert.Nil(t, got)
}

func TestService_VoidSale_WindowBoundary(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		wantErr   error
	}{
		{
			name:      "JustInside",
			createdAt: time.Now().Add(-(23*time.Hour + 59*time.Minute)),
		},
		{
			name:      "JustOutside",
			createdAt: time.Now().Add(-(24*time.Hour + time.Second)),
			wantErr:   sale.ErrWindowExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := sale.NewMockRepository(ctrl)
			tx := sale.NewMockVoidTx(ctrl)
			svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

			existing := voidableSale(tt.createdAt)

			repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
			tx.EXPECT().SaleForUpdate(gomock.Any(), existing.ID).Return(existing, nil)
			tx.EXPECT().Rollback().Return(nil)

			if tt.wantErr == nil {
				tx.EXPECT().ReleaseStock(gomock.Any(), existing.Lines[0].ProductID, 2).Return(nil)
				tx.EXPECT().MarkVoided(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().Commit().Return(nil)
			}

			got, err := svc.VoidSale(context.Background(), existing.ID, seller(), "wrong item")

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, sale.StatusVoided, got.Status)
		})
	}
}

func TestService_VoidSale_ReasonLength(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		wantErr error
	}{
		{name: "TooShort", reason: "bad", wantErr: sale.ErrInvalidReason},
		{name: "WhitespacePadding", reason: "  bad  ", wantErr: sale.ErrInvalidReason},
		{name: "Empty", reason: "", wantErr: sale.ErrInvalidReason},
		{name: "LongEnough", reason: "wrong item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := sale.NewMockRepository(ctrl)
			tx := sale.NewMockVoidTx(ctrl)
			svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

			existing := voidableSale(time.Now().Add(-1 * time.Hour))

			repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
			tx.EXPECT().SaleForUpdate(gomock.Any(), existing.ID).Return(existing, nil)
			tx.EXPECT().Rollback().Return(nil)

			if tt.wantErr == nil {
				tx.EXPECT().ReleaseStock(gomock.Any(), existing.Lines[0].ProductID, 2).Return(nil)
				tx.EXPECT().MarkVoided(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().Commit().Return(nil)
			}

			got, err := svc.VoidSale(context.Background(), existing.ID, seller(), tt.reason)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "wrong item", got.VoidReason)
		})
	}
}

func TestService_VoidSale_ReleaseFailureRollsBackStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := sale.NewMockRepository(ctrl)
	tx := sale.NewMockVoidTx(ctrl)
	svc := sale.NewService(repo, auth.NewRoleGate(), nil, testPolicy)

	existing := voidableSale(time.Now().Add(-1 * time.Hour))

	repo.EXPECT().BeginVoid(gomock.Any()).Return(tx, nil)
	tx.EXPECT().SaleForUpdate(gomock.Any(), existing.ID).Return(existing, nil)
	tx.EXPECT().ReleaseStock(gomock.Any(), existing.Lines[0].ProductID, 2).Return(errors.New("db down"))
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.VoidSale(context.Background(), existing.ID, seller(), "wrong item")

	require.Error(t, err)
	assert.Nil(t, got)
}
