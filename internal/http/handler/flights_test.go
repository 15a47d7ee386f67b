package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/http/handler"
	"github.com/crimson-sun/flightwatch/internal/model"
)

var _ = Describe("FlightsHandler", func() {
	var (
		router *gin.Engine
		lister *mockLister
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		lister = &mockLister{}
		h := handler.NewFlightsHandler(lister)
		router.GET("/flights", h.List)
	})

	It("returns 200 with the relevant flights", func() {
		lister.listFn = func(context.Context) ([]model.FlightRecord, bool, error) {
			return []model.FlightRecord{
				{SubjectID: "1", Callsign: "ABC123", Departure: "OJAI", Arrival: "ORBI", HasFlightPlan: true},
			}, true, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/flights", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Count   int                  `json:"count"`
			Flights []model.FlightRecord `json:"flights"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Count).To(Equal(1))
		Expect(resp.Flights).To(HaveLen(1))
		Expect(resp.Flights[0].Callsign).To(Equal("ABC123"))
		Expect(resp.Flights[0].Departure).To(Equal("OJAI"))
	})

	It("returns an empty list, not null, when nothing matches", func() {
		lister.listFn = func(context.Context) ([]model.FlightRecord, bool, error) {
			return nil, true, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/flights", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"count":0,"flights":[]}`))
	})

	It("returns 502 when the snapshot cannot be fetched", func() {
		lister.listFn = func(context.Context) ([]model.FlightRecord, bool, error) {
			return nil, false, &connector.FetchError{Source: "ivao", Err: errors.New("timeout")}
		}

		req := httptest.NewRequest(http.MethodGet, "/flights", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"Error fetching flight data"}`))
	})
})
