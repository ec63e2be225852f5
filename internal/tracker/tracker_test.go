package tracker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/boardtrack/internal/auth"
	"github.com/mesh-intelligence/boardtrack/internal/ledger"
	"github.com/mesh-intelligence/boardtrack/internal/status"
	"github.com/mesh-intelligence/boardtrack/internal/store"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

type env struct {
	svc     *Service
	store   *store.Store
	writer  *ledger.Writer
	logs    *bytes.Buffer
	admin   int64
	company int64
	board   int64
	root    string
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	st, err := store.Open(types.DatabaseConfig{
		Driver: types.DriverSQLite,
		SQLite: types.SQLiteConfig{Path: filepath.Join(root, "tracking.db")},
	}, store.Options{Hasher: auth.Bcrypt{Cost: bcrypt.MinCost}})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	admin, err := st.CreateUser(ctx, "admin", "secret", types.RoleAdmin)
	require.NoError(t, err)
	company, err := st.CreateCompany(ctx, "Acme", filepath.Join(root, "acme"), mo.Some("ACM"))
	require.NoError(t, err)
	board, err := st.CreateBoard(ctx, company, "CTRL", filepath.Join(root, "acme", "ctrl"))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(logs, nil))
	w := ledger.NewWriter(ledger.Options{ReplaceDelay: time.Millisecond, Logger: log})
	return &env{
		svc:     New(st, w, log),
		store:   st,
		writer:  w,
		logs:    logs,
		admin:   admin,
		company: company,
		board:   board,
		root:    root,
	}
}

func (e *env) request(number string) CreateOrderRequest {
	return CreateOrderRequest{
		OrderNumber: number,
		CompanyID:   e.company,
		BoardID:     mo.Some(e.board),
		Count:       3,
		CreatedBy:   e.admin,
	}
}

func TestSerialPrefix(t *testing.T) {
	tests := []struct {
		code, board, order string
		want               string
	}{
		{"ACM", "CTRL", "A100", "ACM-CTRL-A100-"},
		{"", "CTRL", "A100", "CTRL-A100-"},
		{"ACM", " ", "A100", "ACM-A100-"},
		{"", "", "", types.DefaultSerialPrefix},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SerialPrefix(tt.code, tt.board, tt.order))
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	o, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.root, "acme", "ctrl", "A100.xlsx"), o.LedgerPath)
	assert.Equal(t, mo.Some(e.board), o.BoardID)
	assert.FileExists(t, o.LedgerPath)

	sess, err := e.svc.OpenOrder(ctx, "A100")
	require.NoError(t, err)
	require.Len(t, sess.Rows, 3)
	assert.Equal(t, "ACM-CTRL-A100-00001", sess.Rows[0].Serial)
	assert.Equal(t, "CTRL", sess.Rows[0].BoardLabel)
	assert.Equal(t, e.company, sess.Rows[0].CompanyID)
	assert.Equal(t, status.Summary{Status: status.Pending, Pending: 3, Total: 3}, sess.Summary)
}

func TestCreateOrderWithoutBoardUsesCompanyDir(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	req := e.request("A100")
	req.BoardID = mo.None[int64]()
	req.Prefix = "SN-"
	req.Start = 10

	o, err := e.svc.CreateOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.root, "acme", "A100.xlsx"), o.LedgerPath)

	sess, err := e.svc.OpenOrder(ctx, "A100")
	require.NoError(t, err)
	assert.Equal(t, "SN-00010", sess.Rows[0].Serial)
}

func TestCreateOrderRejectsBeforeTouchingDisk(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	_, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		wantErr error
	}{
		{"duplicate order number", func(*CreateOrderRequest) {}, types.ErrDuplicateOrderNumber},
		{"empty order number", func(r *CreateOrderRequest) { r.OrderNumber = "" }, types.ErrInvalidOrderNumber},
		{"zero count", func(r *CreateOrderRequest) { r.OrderNumber, r.Count = "B1", 0 }, types.ErrInvalidCount},
		{"unknown company", func(r *CreateOrderRequest) { r.OrderNumber, r.CompanyID = "B1", 404 }, types.ErrUnknownCompany},
		{"unknown board", func(r *CreateOrderRequest) { r.OrderNumber, r.BoardID = "B1", mo.Some(int64(404)) }, types.ErrUnknownBoard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.request("A100")
			tt.mutate(&req)
			_, err := e.svc.CreateOrder(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoFileExists(t, filepath.Join(e.root, "acme", "ctrl", "B1.xlsx"))
		})
	}
}

func TestCreateOrderRejectsArchivedDuplicate(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	first, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)
	require.NoError(t, e.svc.ArchiveOrder(ctx, first.OrderID))
	before, err := os.ReadFile(first.LedgerPath)
	require.NoError(t, err)

	req := e.request("A100")
	req.BoardID = mo.None[int64]()
	_, err = e.svc.CreateOrder(ctx, req)
	assert.ErrorIs(t, err, types.ErrDuplicateOrderNumber)

	assert.NoFileExists(t, filepath.Join(e.root, "acme", "A100.xlsx"))
	after, err := os.ReadFile(first.LedgerPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	orders, err := e.store.ListOrders(ctx, types.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, types.OrderStatusArchived, orders[0].Status)
}

func TestCreateOrderWritesNoMetadataWhenLedgerFails(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	dir := filepath.Join(e.root, "acme", "ctrl")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A100.xlsx"), []byte("someone else's"), 0o644))

	_, err := e.svc.CreateOrder(ctx, e.request("A100"))
	assert.ErrorIs(t, err, types.ErrLedgerExists)

	exists, err := e.store.OrderNumberExists(ctx, "A100")
	require.NoError(t, err)
	assert.False(t, exists)
}

// failingMetadata rejects every order registration.
type failingMetadata struct {
	*store.Store
}

func (failingMetadata) CreateOrder(context.Context, string, int64, mo.Option[int64], string, int64) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestCreateOrderDiscardsLedgerWhenRegistrationFails(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	svc := New(failingMetadata{e.store}, e.writer, nil)

	_, err := svc.CreateOrder(ctx, e.request("A100"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(e.root, "acme", "ctrl", "A100.xlsx"))

	// The number is still free, so a retry succeeds.
	_, err = e.svc.CreateOrder(ctx, e.request("A100"))
	assert.NoError(t, err)
}

func TestRecordResultDrivesStatus(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	o, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)

	record := func(serial string, outcome types.Outcome) status.Summary {
		t.Helper()
		sum, err := e.svc.RecordResult(ctx, "A100", types.RowUpdate{Serial: serial, Outcome: outcome, Operator: "op1"})
		require.NoError(t, err)
		return sum
	}

	assert.Equal(t, status.Active, record("ACM-CTRL-A100-00001", types.Passed()).Status)
	assert.Equal(t, status.Active, record("ACM-CTRL-A100-00002", types.Failed("no boot")).Status)

	sess, err := e.svc.OpenOrder(ctx, "A100")
	require.NoError(t, err)
	_, entry, err := sess.Lookup(" ACM-CTRL-A100-00002 ")
	require.NoError(t, err)
	assert.True(t, entry.WasPreviouslyFailed)

	_, err = e.svc.RecordResult(ctx, "A100", types.RowUpdate{Serial: "ACM-CTRL-A100-00002", Outcome: types.Passed(), Operator: "op1"})
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	record("ACM-CTRL-A100-00002", types.Fixed("reseated connector"))
	sum := record("ACM-CTRL-A100-00003", types.Passed())
	assert.Equal(t, status.Summary{Status: status.Complete, Pass: 3, Total: 3}, sum)

	got, err := e.svc.OrderStatus(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, status.Complete, got.Summary.Status)
	assert.Equal(t, types.OrderStatusPending, got.Order.Status, "persisted status does not follow the ledger")
}

func TestArchiveOrder(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	o, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)

	require.NoError(t, e.svc.ArchiveOrder(ctx, o.OrderID))
	assert.Contains(t, e.logs.String(), "archived order that is not complete")

	_, err = e.svc.RecordResult(ctx, "A100", types.RowUpdate{Serial: "ACM-CTRL-A100-00001", Outcome: types.Passed(), Operator: "op1"})
	assert.ErrorIs(t, err, types.ErrOrderArchived)

	summaries, err := e.svc.ListOrderSummaries(ctx, types.OrderFilter{Status: types.OrderStatusArchived})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, status.Pending, summaries[0].Summary.Status)
}

func TestListOrderSummariesReportsMissingLedger(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	o, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(o.LedgerPath))

	summaries, err := e.svc.ListOrderSummaries(ctx, types.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, status.Unknown, summaries[0].Summary.Status)

	_, err = e.svc.OpenOrder(ctx, "A100")
	assert.ErrorIs(t, err, types.ErrReadFailure)
}

func TestDeletePermanentlyKeepsLedgers(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	o, err := e.svc.CreateOrder(ctx, e.request("A100"))
	require.NoError(t, err)

	orphans, err := e.svc.DeletePermanently(ctx, types.KindCompany, e.company)
	require.NoError(t, err)
	assert.Equal(t, []string{o.LedgerPath}, orphans)
	assert.FileExists(t, o.LedgerPath)
	assert.Contains(t, e.logs.String(), "ledger file orphaned")
}
