package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/nesohq/krakens/middleware"
	"github.com/nesohq/krakens/models"
	"github.com/nesohq/krakens/utils"
)

// CreateAPIKey mints a key scoped to a set of the user's own domains. The
// secret is returned exactly once; only its sha256 hash is stored.
func CreateAPIKey(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := r.Context().Value(middleware.UserIdKey).(int)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		var insert models.APIKeyInsert
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

		// Every requested domain must belong to the requesting user.
		for _, domainID := range insert.DomainIDs {
			var ownerID int
			err := db.QueryRow("SELECT user_id FROM domains WHERE id = $1", domainID).Scan(&ownerID)
			if err == sql.ErrNoRows {
				http.Error(w, fmt.Sprintf("Domain with id %d doesn't exist", domainID), http.StatusBadRequest)
				return
			}
			if err != nil {
				log.Println("Error checking domain owner:", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if ownerID != userId {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		secret, err := generateKeySecret()
		if err != nil {
			log.Println("Error generating key secret:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		hash := sha256.Sum256([]byte(secret))
		keyHash := hex.EncodeToString(hash[:])
		prefix := secret[:11]
		keyID := uuid.NewString()

		tx, err := db.Begin()
		if err != nil {
			log.Println("Error starting transaction:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer tx.Rollback()

		var created models.APIKeyCreated
		created.ID = keyID
		created.UserID = userId
		created.Prefix = prefix
		created.DomainIDs = insert.DomainIDs
		created.Secret = secret

		err = tx.QueryRow(`
			INSERT INTO api_keys (id, user_id, key_hash, prefix)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, keyID, userId, keyHash, prefix).Scan(&created.CreatedAt)
		if err != nil {
			log.Println("Error inserting api key:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		for _, domainID := range insert.DomainIDs {
			_, err = tx.Exec(`
				INSERT INTO api_key_domains (api_key_id, domain_id)
				VALUES ($1, $2)
			`, keyID, domainID)
			if err != nil {
				log.Println("Error inserting api key domain:", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		if err = tx.Commit(); err != nil {
			log.Println("Error committing api key:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		utils.WriteJSONResponse(w, http.StatusCreated, created)
	}
}

func GetUserAPIKeys(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := r.Context().Value(middleware.UserIdKey).(int)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		rows, err := db.Query(`
			SELECT id, user_id, prefix, revoked, created_at
			FROM api_keys
			WHERE user_id = $1
			ORDER BY created_at
		`, userId)
		if err != nil {
			log.Println("Error querying api keys:", err)
			http.Error(w, "Error retrieving api keys", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		var keys []models.APIKey
		for rows.Next() {
			var key models.APIKey
			err := rows.Scan(&key.ID, &key.UserID, &key.Prefix, &key.Revoked, &key.CreatedAt)
			if err != nil {
				log.Println("Error scanning api key:", err)
				http.Error(w, "Error scanning api key", http.StatusInternalServerError)
				return
			}
			keys = append(keys, key)
		}
		if err := rows.Err(); err != nil {
			log.Println("Error iterating api keys:", err)
			http.Error(w, "Error iterating api keys", http.StatusInternalServerError)
			return
		}

		// Attach the authorized domain ids to each key.
		for i := range keys {
			domainRows, err := db.Query(`
				SELECT domain_id FROM api_key_domains WHERE api_key_id = $1 ORDER BY domain_id
			`, keys[i].ID)
			if err != nil {
				log.Println("Error querying api key domains:", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			for domainRows.Next() {
				var domainID int
				if err := domainRows.Scan(&domainID); err != nil {
					domainRows.Close()
					log.Println("Error scanning api key domain:", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				keys[i].DomainIDs = append(keys[i].DomainIDs, domainID)
			}
			domainRows.Close()
		}

		utils.WriteJSONResponse(w, http.StatusOK, keys)
	}
}

// RevokeAPIKey flips the revoked flag. There is no way back; a compromised
// key stays dead.
func RevokeAPIKey(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, ok := r.Context().Value(middleware.UserIdKey).(int)
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		keyID, err := utils.ExtractKeyIDFromURL(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := db.Exec(`
			UPDATE api_keys
			SET revoked = TRUE
			WHERE id = $1 AND user_id = $2
		`, keyID, userId)
		if err != nil {
			log.Println("Error revoking api key:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if rowsAffected == 0 {
			http.Error(w, "API key not found", http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func generateKeySecret() (string, error) {
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	if err != nil {
		return "", err
	}
	return "ka_" + hex.EncodeToString(raw), nil
}
