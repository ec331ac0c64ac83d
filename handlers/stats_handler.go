package handlers

import (
	"net/http"
	"time"

	"github.com/nesohq/krakens/aggregator"
	"github.com/nesohq/krakens/metrics"
	"github.com/nesohq/krakens/tracker"
	"github.com/nesohq/krakens/utils"
)

// The stats endpoints serve snapshots of the in-memory aggregates. The
// numbers reset on restart; historical reporting is not this service's job.

func GetRealtimeStats(sessions *tracker.Sessions, agg *aggregator.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domainID, err := utils.ExtractDomainIDFromURL(r)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		now := time.Now()
		active := sessions.ActiveCount(domainID, now)
		stats := agg.Realtime(domainID, active, now)

		metrics.RecordSnapshot("realtime")
		utils.WriteJSONResponse(w, http.StatusOK, stats)
	}
}

func GetOverviewStats(agg *aggregator.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domainID, err := utils.ExtractDomainIDFromURL(r)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		stats := agg.Overview(domainID, time.Now())

		metrics.RecordSnapshot("overview")
		utils.WriteJSONResponse(w, http.StatusOK, stats)
	}
}
