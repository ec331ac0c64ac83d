package handlers

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nesohq/krakens/aggregator"
	"github.com/nesohq/krakens/metrics"
	"github.com/nesohq/krakens/models"
	"github.com/nesohq/krakens/ratelimit"
	"github.com/nesohq/krakens/tracker"
	"github.com/nesohq/krakens/utils"
)

var (
	errUnauthorized    = errors.New("invalid API key")
	errAmbiguousDomain = errors.New("domain_id is required for keys with multiple domains")
)

// TrackBeacon is the ingestion endpoint the snippet posts to. The order
// matters: a beacon that fails auth or the rate limit never reaches the
// session tracker or the aggregator, so there are no partial updates.
func TrackBeacon(db *sql.DB, limiter *ratelimit.Limiter, sessions *tracker.Sessions, agg *aggregator.Aggregator, locator tracker.Locator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			metrics.RecordBeacon(metrics.OutcomeUnauthorized)
			utils.WriteErrorResponse(w, http.StatusUnauthorized, "API key required")
			return
		}

		// The body may carry the target domain id, so decode before auth.
		var beacon models.Beacon
		err := json.NewDecoder(r.Body).Decode(&beacon)
		if err != nil {
			metrics.RecordBeacon(metrics.OutcomeMalformed)
			utils.WriteErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if beacon.DomainID == 0 {
			if id, err := strconv.Atoi(r.URL.Query().Get("domain_id")); err == nil {
				beacon.DomainID = id
			}
		}

		domain, err := authorizeBeacon(db, apiKey, beacon.DomainID)
		if err == errUnauthorized {
			metrics.RecordBeacon(metrics.OutcomeUnauthorized)
			utils.WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err == errAmbiguousDomain {
			metrics.RecordBeacon(metrics.OutcomeMalformed)
			utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Println("Error authorizing beacon:", err)
			metrics.RecordBeacon(metrics.OutcomeInternal)
			utils.WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if !limiter.Allow(domain.ID, domain.Settings.RateLimit) {
			metrics.RecordBeacon(metrics.OutcomeRateLimited)
			utils.WriteErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		event, err := tracker.Normalize(beacon, utils.GetIPAddress(r), domain.ID, domain.Settings, locator, time.Now())
		if err != nil {
			metrics.RecordBeacon(metrics.OutcomeMalformed)
			utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		timeout := time.Duration(domain.Settings.SessionTimeout) * time.Second
		if sessions.Touch(domain.ID, event.VisitorID, timeout, event.Timestamp) {
			metrics.RecordSessionStart()
		}
		agg.Record(event)

		metrics.RecordBeacon(metrics.OutcomeOK)
		utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// authorizeBeacon resolves the API key against the target domain and hands
// back the domain with its current settings. Settings are read fresh on
// every beacon; nothing is cached.
func authorizeBeacon(db *sql.DB, secret string, domainID int) (models.Domain, error) {
	hash := sha256.Sum256([]byte(secret))
	keyHash := hex.EncodeToString(hash[:])

	var domain models.Domain

	if domainID == 0 {
		// A key bound to exactly one domain doesn't need an explicit domain_id.
		rows, err := db.Query(`
			SELECT d.id
			FROM api_keys ak
			JOIN api_key_domains akd ON akd.api_key_id = ak.id
			JOIN domains d ON d.id = akd.domain_id
			WHERE ak.key_hash = $1 AND ak.revoked = FALSE
		`, keyHash)
		if err != nil {
			return domain, err
		}
		defer rows.Close()

		var ids []int
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				return domain, err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return domain, err
		}

		if len(ids) == 0 {
			return domain, errUnauthorized
		}
		if len(ids) > 1 {
			return domain, errAmbiguousDomain
		}
		domainID = ids[0]
	}

	err := db.QueryRow(`
		SELECT d.id, d.user_id, d.host, d.verified, d.anonymize_ip, d.rate_limit, d.track_query_params, d.session_timeout, d.timezone
		FROM api_keys ak
		JOIN api_key_domains akd ON akd.api_key_id = ak.id
		JOIN domains d ON d.id = akd.domain_id
		WHERE ak.key_hash = $1 AND ak.revoked = FALSE AND d.id = $2
	`, keyHash, domainID).Scan(
		&domain.ID,
		&domain.UserID,
		&domain.Host,
		&domain.Verified,
		&domain.Settings.AnonymizeIP,
		&domain.Settings.RateLimit,
		&domain.Settings.TrackQueryParams,
		&domain.Settings.SessionTimeout,
		&domain.Settings.Timezone,
	)
	if err == sql.ErrNoRows {
		return domain, errUnauthorized
	}
	if err != nil {
		return domain, err
	}

	return domain, nil
}
