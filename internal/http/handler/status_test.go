package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/http/handler"
	"github.com/crimson-sun/flightwatch/internal/model"
)

var _ = Describe("StatusHandler", func() {
	var (
		router *gin.Engine
		status *mockStatus
		last   time.Time
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		last = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

		store := dedup.NewMemory(dedup.Config{})
		Expect(store.Mark(context.Background(), model.EventKey{Callsign: "ABC123", Departure: "OJAI", Arrival: "ORBI"}, time.Now())).To(Succeed())

		status = &mockStatus{
			lastChecked: last,
			watch:       model.NewWatchList("OJAI", "ORBI"),
			store:       store,
		}
		h := handler.NewStatusHandler(status, "* * * * *")
		router.GET("/status", h.Get)
		router.GET("/healthz", handler.Health)
	})

	It("reports the monitor state", func() {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["last_checked"]).To(Equal("2026-03-01T10:30:00Z"))
		Expect(resp["watch_list"]).To(ConsistOf("OJAI", "ORBI"))
		Expect(resp["reported"]).To(BeEquivalentTo(1))
		Expect(resp["schedule"]).To(Equal("* * * * *"))
	})

	It("returns 503 when the reported store is unavailable", func() {
		status.store = brokenStore{status.store}

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("answers health checks", func() {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})
})
