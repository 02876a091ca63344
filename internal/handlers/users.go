package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"skillswap/internal/httputil"
	"skillswap/internal/ledger"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/ratings"
)

type UserHandler struct {
	db      *sqlx.DB
	ledger  *ledger.Store
	ratings *ratings.Store
	logger  *zap.Logger
}

func NewUserHandler(db *sqlx.DB, lg *ledger.Store, rt *ratings.Store, logger *zap.Logger) *UserHandler {
	return &UserHandler{db: db, ledger: lg, ratings: rt, logger: logger}
}

// Search filters users by free-text term, location, offered skill and minimum
// average rating. All filters are optional and combine with AND.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if term := strings.TrimSpace(q.Get("term")); term != "" {
		p := arg("%" + term + "%")
		where = append(where, fmt.Sprintf("(u.name ILIKE %s OR u.bio ILIKE %s)", p, p))
	}
	if loc := strings.TrimSpace(q.Get("location")); loc != "" {
		where = append(where, fmt.Sprintf("u.location ILIKE %s", arg("%"+loc+"%")))
	}
	if skill := strings.TrimSpace(q.Get("skill")); skill != "" {
		where = append(where, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM user_skills_offered uso
			         JOIN skills s ON s.id = uso.skill_id
			         WHERE uso.user_id = u.id AND s.name ILIKE %s)`, arg("%"+skill+"%")))
	}
	if mr := q.Get("minRating"); mr != "" {
		min, err := strconv.ParseFloat(mr, 64)
		if err != nil {
			httputil.Fail(w, http.StatusBadRequest, "invalid minRating")
			return
		}
		where = append(where, fmt.Sprintf("u.average_rating >= %s", arg(min)))
	}

	users := []models.User{}
	query := `SELECT u.* FROM users u WHERE ` + strings.Join(where, " AND ") + ` ORDER BY u.average_rating DESC, u.id`
	if err := h.db.SelectContext(r.Context(), &users, query, args...); err != nil {
		h.logger.Error("search users", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.OK(w, "", users)
}

// Get returns a user's public profile with offered skills and received
// ratings. The stored average is recomputed from the ratings table on read so
// the profile never shows a stale aggregate.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var user models.User
	if err := h.db.GetContext(r.Context(), &user, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		httputil.Fail(w, http.StatusNotFound, "User not found")
		return
	}

	avg, err := h.ratings.Recompute(r.Context(), id)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	user.AverageRating = avg

	skills := []models.SkillOffering{}
	err = h.db.SelectContext(r.Context(), &skills,
		`SELECT uso.id, uso.user_id, uso.skill_id, uso.skill_level, uso.hourly_rate, uso.description,
		        s.name AS skill_name, s.category
		 FROM user_skills_offered uso JOIN skills s ON s.id = uso.skill_id
		 WHERE uso.user_id = $1 ORDER BY s.name`, id)
	if err != nil {
		h.logger.Error("list offered skills", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	received, err := h.ratings.ForUser(r.Context(), id)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}

	httputil.OK(w, "", map[string]any{
		"user":    user,
		"skills":  skills,
		"ratings": received,
	})
}

type updateProfileRequest struct {
	Name           *string `json:"name"`
	Location       *string `json:"location"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

// Update edits the caller's own profile. Absent fields are left untouched.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id != middleware.UserID(r) {
		httputil.Fail(w, http.StatusForbidden, "You can only update your own profile")
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}

	var user models.User
	err := h.db.QueryRowxContext(r.Context(),
		`UPDATE users SET
		   name = COALESCE($2, name),
		   location = COALESCE($3, location),
		   bio = COALESCE($4, bio),
		   profile_picture = COALESCE($5, profile_picture),
		   updated_at = NOW()
		 WHERE id = $1
		 RETURNING *`,
		id, req.Name, req.Location, req.Bio, req.ProfilePicture).StructScan(&user)
	if err != nil {
		h.logger.Error("update profile", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.OK(w, "Profile updated successfully", user)
}

type addSkillRequest struct {
	SkillID     int64  `json:"skillID"`
	SkillLevel  string `json:"skillLevel"`
	HourlyRate  int64  `json:"hourlyRate"`
	Description string `json:"description"`
}

// AddSkill upserts a skill offering for the caller. Re-adding an already
// offered skill replaces its level, rate and description.
func (h *UserHandler) AddSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id != middleware.UserID(r) {
		httputil.Fail(w, http.StatusForbidden, "You can only manage your own skills")
		return
	}
	var req addSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.SkillID == 0 {
		httputil.Fail(w, http.StatusBadRequest, "skillID is required")
		return
	}
	if req.SkillLevel == "" {
		req.SkillLevel = "Beginner"
	}
	if req.HourlyRate < 0 {
		httputil.Fail(w, http.StatusBadRequest, "hourly rate cannot be negative")
		return
	}

	var offering models.SkillOffering
	err := h.db.QueryRowxContext(r.Context(),
		`INSERT INTO user_skills_offered (user_id, skill_id, skill_level, hourly_rate, description)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, skill_id) DO UPDATE
		   SET skill_level = EXCLUDED.skill_level,
		       hourly_rate = EXCLUDED.hourly_rate,
		       description = EXCLUDED.description
		 RETURNING id, user_id, skill_id, skill_level, hourly_rate, description`,
		id, req.SkillID, req.SkillLevel, req.HourlyRate, req.Description).StructScan(&offering)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, "could not add skill")
		return
	}
	httputil.Created(w, "Skill added successfully", offering)
}

// Transactions returns another view of /users/my-transactions keyed by path
// id; only the owner may read their history.
func (h *UserHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id != middleware.UserID(r) {
		httputil.Fail(w, http.StatusForbidden, "You can only view your own transactions")
		return
	}
	h.writeHistory(w, r, id)
}

// MyTransactions returns the caller's ledger history, newest first, paginated.
func (h *UserHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, middleware.UserID(r))
}

func (h *UserHandler) writeHistory(w http.ResponseWriter, r *http.Request, userID int64) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	txs, err := h.ledger.History(r.Context(), userID, limit, offset)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}
	total, err := h.ledger.Count(r.Context(), userID)
	if err != nil {
		httputil.Error(w, h.logger, err)
		return
	}

	httputil.OK(w, "", map[string]any{
		"transactions": txs,
		"pagination": map[string]any{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Fail(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
