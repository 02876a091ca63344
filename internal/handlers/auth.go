package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"skillswap/internal/httputil"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
)

type AuthHandler struct {
	db              *sqlx.DB
	jwtSecret       []byte
	startingBalance int64
	logger          *zap.Logger
}

func NewAuthHandler(db *sqlx.DB, jwtSecret []byte, startingBalance int64, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, jwtSecret: jwtSecret, startingBalance: startingBalance, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Location string `json:"location"`
	Bio      string `json:"bio"`
}

// Register creates the account with the starting balance and a matching
// welcome-bonus transaction in one database transaction, so the ledger
// invariant holds from the first row.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		httputil.Fail(w, http.StatusBadRequest, "Name, email, and password are required")
		return
	}
	if len(req.Password) < 6 {
		httputil.Fail(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}

	var exists int
	err := h.db.Get(&exists, `SELECT 1 FROM users WHERE email = $1`, req.Email)
	if err == nil {
		httputil.Fail(w, http.StatusBadRequest, "User with this email already exists")
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		h.logger.Error("check existing user", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error during registration")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.Fail(w, http.StatusInternalServerError, "could not hash password")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		h.logger.Error("begin registration", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error during registration")
		return
	}
	defer tx.Rollback()

	var user models.User
	err = tx.QueryRowx(
		`INSERT INTO users (name, email, password_hash, location, bio, points_balance)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING *`,
		req.Name, req.Email, string(hashed), req.Location, req.Bio, h.startingBalance).StructScan(&user)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, "could not create user")
		return
	}
	if _, err := tx.Exec(
		`INSERT INTO transactions (user_id, amount, transaction_type, description) VALUES ($1, $2, 'Award', 'Welcome bonus')`,
		user.ID, h.startingBalance); err != nil {
		h.logger.Error("record welcome bonus", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error during registration")
		return
	}
	if err := tx.Commit(); err != nil {
		h.logger.Error("commit registration", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error during registration")
		return
	}

	token, err := h.issueJWT(user.ID)
	if err != nil {
		httputil.Fail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	httputil.Created(w, "User registered successfully", map[string]any{"user": user, "token": token})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || c.Password == "" {
		httputil.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	var user models.User
	err := h.db.Get(&user, `SELECT * FROM users WHERE email = $1`, c.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.Fail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("find user for login", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error during login")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		httputil.Fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.issueJWT(user.ID)
	if err != nil {
		httputil.Fail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	httputil.OK(w, "Login successful", map[string]any{"user": user, "token": token})
}

// Me returns the authenticated user's own record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	var user models.User
	if err := h.db.Get(&user, `SELECT * FROM users WHERE id = $1`, userID); err != nil {
		httputil.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	httputil.OK(w, "", user)
}

func (h *AuthHandler) issueJWT(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
