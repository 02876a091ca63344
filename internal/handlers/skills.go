package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"skillswap/internal/httputil"
	"skillswap/internal/models"
)

type SkillHandler struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSkillHandler(db *sqlx.DB, logger *zap.Logger) *SkillHandler {
	return &SkillHandler{db: db, logger: logger}
}

func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	skills := []models.Skill{}
	err := h.db.SelectContext(r.Context(), &skills,
		`SELECT * FROM skills ORDER BY category, name`)
	if err != nil {
		h.logger.Error("list skills", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.OK(w, "", skills)
}

func (h *SkillHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := []string{}
	err := h.db.SelectContext(r.Context(), &categories,
		`SELECT DISTINCT category FROM skills ORDER BY category`)
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.OK(w, "", categories)
}

// teacherResult is a user joined with one skill offering.
type teacherResult struct {
	UserID        int64   `db:"user_id" json:"user_id"`
	Name          string  `db:"name" json:"name"`
	Location      string  `db:"location" json:"location"`
	ProfilePic    *string `db:"profile_picture" json:"profile_picture,omitempty"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
	SkillID       int64   `db:"skill_id" json:"skill_id"`
	SkillName     string  `db:"skill_name" json:"skill_name"`
	Category      string  `db:"category" json:"category"`
	SkillLevel    string  `db:"skill_level" json:"skill_level"`
	HourlyRate    int64   `db:"hourly_rate" json:"hourly_rate"`
	Description   string  `db:"description" json:"description"`
}

// Teachers searches skill offerings by skill name, category, location and
// maximum hourly rate.
func (h *SkillHandler) Teachers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if skill := strings.TrimSpace(q.Get("skill")); skill != "" {
		where = append(where, fmt.Sprintf("s.name ILIKE %s", arg("%"+skill+"%")))
	}
	if cat := strings.TrimSpace(q.Get("category")); cat != "" {
		where = append(where, fmt.Sprintf("s.category = %s", arg(cat)))
	}
	if loc := strings.TrimSpace(q.Get("location")); loc != "" {
		where = append(where, fmt.Sprintf("u.location ILIKE %s", arg("%"+loc+"%")))
	}
	if mr := q.Get("maxRate"); mr != "" {
		max, err := strconv.ParseInt(mr, 10, 64)
		if err != nil {
			httputil.Fail(w, http.StatusBadRequest, "invalid maxRate")
			return
		}
		where = append(where, fmt.Sprintf("uso.hourly_rate <= %s", arg(max)))
	}

	out := []teacherResult{}
	query := `SELECT u.id AS user_id, u.name, u.location, u.profile_picture, u.average_rating,
	                 s.id AS skill_id, s.name AS skill_name, s.category,
	                 uso.skill_level, uso.hourly_rate, uso.description
	          FROM user_skills_offered uso
	          JOIN users u ON u.id = uso.user_id
	          JOIN skills s ON s.id = uso.skill_id
	          WHERE ` + strings.Join(where, " AND ") + `
	          ORDER BY u.average_rating DESC, uso.hourly_rate ASC`
	if err := h.db.SelectContext(r.Context(), &out, query, args...); err != nil {
		h.logger.Error("search teachers", zap.Error(err))
		httputil.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.OK(w, "", out)
}
