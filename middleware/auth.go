package middleware

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/nesohq/krakens/utils"
)

// added because of type complains
type contextKey string

const UserIdKey contextKey = "userId"

// AuthMiddleware validates the dashboard's bearer token and puts the user
// id on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(tokenString, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header", http.StatusUnauthorized)
			return
		}

		token, err := utils.ValidateToken(parts[1])
		if err != nil {
			log.Println(err.Error())
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		claims := token.Claims.(jwt.MapClaims)
		userId := int(claims["userId"].(float64))

		ctx := context.WithValue(r.Context(), UserIdKey, userId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DomainOwnerMiddleware checks that the {domainId} in the URL belongs to
// the authenticated user. Runs after AuthMiddleware.
func DomainOwnerMiddleware(db *sql.DB) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userId, ok := r.Context().Value(UserIdKey).(int)
			if !ok {
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}

			domainID, err := utils.ExtractDomainIDFromURL(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			var ownerID int
			err = db.QueryRow("SELECT user_id FROM domains WHERE id = $1", domainID).Scan(&ownerID)
			if err == sql.ErrNoRows {
				http.Error(w, "Domain not found", http.StatusNotFound)
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

			next.ServeHTTP(w, r)
		})
	}
}
