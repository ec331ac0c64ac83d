package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nesohq/krakens/models"
	"github.com/nesohq/krakens/utils"
)

func CreateUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user models.UserInsert

		// Decode the JSON in the request body into the user struct
		err := json.NewDecoder(r.Body).Decode(&user)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		// Validate the user struct
		err = user.Validate()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("Error hashing password:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Insert the user into the database
		_, err = db.Exec(`
			INSERT INTO users (name, email, password)
			VALUES ($1, $2, $3)
		`, user.Name, user.Email, string(hashed))

		if err != nil {
			log.Println("Error inserting user:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func Login(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var login models.UserLogin
		err := json.NewDecoder(r.Body).Decode(&login)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		err = login.Validate()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var user models.User
		err = db.QueryRow(`
			SELECT id, name, email, password, created_at
			FROM users
			WHERE email = $1
		`, login.Email).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt)
		if err == sql.ErrNoRows {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		if err != nil {
			log.Println("Error retrieving user:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(login.Password))
		if err != nil {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}

		accessToken, err := utils.CreateAccessToken(user.ID, user.Name, user.Email)
		if err != nil {
			log.Println("Error creating access token:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		refreshToken, err := utils.CreateRefreshToken(user.ID)
		if err != nil {
			log.Println("Error creating refresh token:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
			"token":        accessToken,
			"refreshToken": refreshToken,
			"user":         user,
		})
	}
}

func RefreshToken(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil || body.RefreshToken == "" {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		token, err := utils.ValidateToken(body.RefreshToken)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		claims := token.Claims.(jwt.MapClaims)
		userId := int(claims["userId"].(float64))

		var user models.User
		err = db.QueryRow(`
			SELECT id, name, email, created_at
			FROM users
			WHERE id = $1
		`, userId).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
		if err == sql.ErrNoRows {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}
		if err != nil {
			log.Println("Error retrieving user:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		accessToken, err := utils.CreateAccessToken(user.ID, user.Name, user.Email)
		if err != nil {
			log.Println("Error creating access token:", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		utils.WriteJSONResponse(w, http.StatusOK, map[string]string{
			"token": accessToken,
		})
	}
}
