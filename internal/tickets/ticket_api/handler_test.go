package ticket_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	catalogdb "ms-reservation/internal/catalog/db"
	catalog "ms-reservation/internal/catalog/service"
	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/reservation/cache"
	"ms-reservation/internal/reservation/ledger"
	qr "ms-reservation/internal/tickets/qr_generator"
	"ms-reservation/internal/tickets/ticket_api"
)

var now = time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)

type env struct {
	router chi.Router
	engine *reservation.Engine
	qr     *qr.QRGenerator
	event  *models.Event
}

func setup(t *testing.T) *env {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	_, err = bunDB.NewCreateTable().Model((*models.Event)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewCreateTable().Model((*models.Hold)(nil)).Exec(ctx)
	require.NoError(t, err)

	clk := clock.NewFixed(now)
	log := logger.NewWithWriter(io.Discard)
	catalogService := catalog.NewCatalogService(&catalogdb.DB{Bun: bunDB})
	e := &env{qr: qr.NewQRGenerator("test-secret")}
	e.engine = reservation.NewEngine(catalogService, ledger.New(bunDB, clk), cache.NewMemoryCache(clk, time.Minute), clk, log)

	e.event = &models.Event{Name: "Opera Gala", ScheduledAt: now.Add(10 * 24 * time.Hour), MinPrice: 80, Capacity: 50}
	require.NoError(t, catalogService.CreateEvent(ctx, e.event))

	e.router = chi.NewRouter()
	ticket_api.NewHandler(e.engine, e.qr, clk, log).RegisterRoutes(e.router)
	return e
}

func (e *env) confirmedTicket(t *testing.T, buyerID int64) models.Hold {
	ctx := context.Background()
	res, err := e.engine.Reserve(ctx, e.event.ID, buyerID, models.TierVIP, 1)
	require.NoError(t, err)
	hold, err := e.engine.Confirm(ctx, res.Holds[0].ID, buyerID)
	require.NoError(t, err)
	return hold
}

func TestGetTicketQR(t *testing.T) {
	e := setup(t)
	hold := e.confirmedTicket(t, 9)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/"+hold.ID+"/qr?user_id=9", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestGetTicketQR_NotConfirmed(t *testing.T) {
	e := setup(t)
	res, err := e.engine.Reserve(context.Background(), e.event.ID, 9, models.TierGeneral, 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"reserved only", "/api/tickets/" + res.Holds[0].ID + "/qr?user_id=9", http.StatusNotFound},
		{"someone else", "/api/tickets/" + res.Holds[0].ID + "/qr?user_id=10", http.StatusNotFound},
		{"missing user", "/api/tickets/" + res.Holds[0].ID + "/qr", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func verify(e *env, token string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"encrypted_qr": token})
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tickets/verify", bytes.NewReader(body)))
	return rec
}

func TestVerifyTicket(t *testing.T) {
	e := setup(t)
	hold := e.confirmedTicket(t, 4)

	token, err := e.qr.Encrypt(qr.TicketPayload{TicketID: hold.ID, EventID: hold.EventID, UserID: 4, SeatType: hold.Tier, IssuedAt: now})
	require.NoError(t, err)

	rec := verify(e, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ticket is valid")

	_, err = e.engine.Cancel(context.Background(), hold.ID, 4)
	require.NoError(t, err)

	rec = verify(e, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyTicket_BadToken(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusBadRequest, verify(e, "not-a-token").Code)
	assert.Equal(t, http.StatusBadRequest, verify(e, "").Code)

	forged, err := qr.NewQRGenerator("other-secret").Encrypt(qr.TicketPayload{TicketID: "x", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, verify(e, forged).Code)
}
