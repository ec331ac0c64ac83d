package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/nesohq/krakens/middleware"
	"github.com/nesohq/krakens/models"
	"github.com/nesohq/krakens/utils"
)

func CreateDomain(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := r.Context().Value(middleware.UserIdKey).(int)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		var insert models.DomainInsert
		err := json.NewDecoder(r.Body).Decode(&insert)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		err = insert.Validate()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		settings := models.DefaultSettings()

		var domain models.Domain
		domain.UserID = userId
		domain.Host = insert.Host
		domain.Settings = settings

		err = db.QueryRow(`
			INSERT INTO domains (user_id, host, anonymize_ip, rate_limit, track_query_params, session_timeout, timezone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, verified, created_at, updated_at
		`, userId, insert.Host, settings.AnonymizeIP, settings.RateLimit, settings.TrackQueryParams, settings.SessionTimeout, settings.Timezone).
			Scan(&domain.ID, &domain.Verified, &domain.CreatedAt, &domain.UpdatedAt)
		if err != nil {
			log.Println("Error inserting domain:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		utils.WriteJSONResponse(w, http.StatusCreated, domain)
	}
}

func GetUserDomains(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := r.Context().Value(middleware.UserIdKey).(int)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		rows, err := db.Query(`
			SELECT id, user_id, host, verified, anonymize_ip, rate_limit, track_query_params, session_timeout, timezone, created_at, updated_at
			FROM domains
			WHERE user_id = $1
			ORDER BY id
		`, userId)
		if err != nil {
			log.Println("Error querying domains:", err)
			http.Error(w, "Error retrieving domains", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		var domains []models.Domain
		for rows.Next() {
			var domain models.Domain
			err := scanDomain(rows, &domain)
			if err != nil {
				log.Println("Error scanning domain:", err)
				http.Error(w, "Error scanning domain", http.StatusInternalServerError)
				return
			}
			domains = append(domains, domain)
		}
		if err := rows.Err(); err != nil {
			log.Println("Error iterating domains:", err)
			http.Error(w, "Error iterating domains", http.StatusInternalServerError)
			return
		}

		utils.WriteJSONResponse(w, http.StatusOK, domains)
	}
}

func GetDomain(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := utils.ExtractDomainIDFromURL(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		row := db.QueryRow(`
			SELECT id, user_id, host, verified, anonymize_ip, rate_limit, track_query_params, session_timeout, timezone, created_at, updated_at
			FROM domains
			WHERE id = $1
		`, id)

		var domain models.Domain
		err = scanDomain(row, &domain)
		if err == sql.ErrNoRows {
			http.Error(w, fmt.Sprintf("Domain with id %d doesn't exist", id), http.StatusNotFound)
			return
		}
		if err != nil {
			log.Println("Error retrieving domain:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		utils.WriteJSONResponse(w, http.StatusOK, domain)
	}
}

// UpdateDomainSettings replaces the domain's settings. The ingestion path
// reads settings from the database on every beacon, so the change applies
// to the very next one.
func UpdateDomainSettings(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := utils.ExtractDomainIDFromURL(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var update models.DomainSettingsUpdate
		err = json.NewDecoder(r.Body).Decode(&update)
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		err = update.Validate()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s := update.Settings
		result, err := db.Exec(`
			UPDATE domains
			SET anonymize_ip = $1, rate_limit = $2, track_query_params = $3, session_timeout = $4, timezone = $5, updated_at = NOW()
			WHERE id = $6
		`, s.AnonymizeIP, s.RateLimit, s.TrackQueryParams, s.SessionTimeout, s.Timezone, id)
		if err != nil {
			log.Println("Error updating domain settings:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if rowsAffected == 0 {
			http.Error(w, fmt.Sprintf("Domain with id %d doesn't exist", id), http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func DeleteDomain(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := utils.ExtractDomainIDFromURL(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// api_key_domains rows go with it via ON DELETE CASCADE; the keys
		// themselves stay, they just authorize one domain less.
		result, err := db.Exec(`
			DELETE FROM domains
			WHERE id = $1
		`, id)
		if err != nil {
			log.Println("Error deleting domain:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if rowsAffected == 0 {
			http.Error(w, fmt.Sprintf("Domain with id %d doesn't exist", id), http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDomain(row rowScanner, domain *models.Domain) error {
	return row.Scan(
		&domain.ID,
		&domain.UserID,
		&domain.Host,
		&domain.Verified,
		&domain.Settings.AnonymizeIP,
		&domain.Settings.RateLimit,
		&domain.Settings.TrackQueryParams,
		&domain.Settings.SessionTimeout,
		&domain.Settings.Timezone,
		&domain.CreatedAt,
		&domain.UpdatedAt,
	)
}
