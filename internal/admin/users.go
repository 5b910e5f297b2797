package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gorm.io/gorm"

	"github.com/GreenHydrogen/H2-Backend/internal/auth"
	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/utils"
)

var Roles = []string{"user", "admin"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[admin] encode response: %v", err)
	}
}

func message(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	var users []auth.User
	if err := db.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		message(w, http.StatusInternalServerError, "Error fetching users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func findUser(w http.ResponseWriter, id string) (*auth.User, bool) {
	var u auth.User
	err := db.DB.First(&u, "user_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		message(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		message(w, http.StatusInternalServerError, "Error fetching user")
		return nil, false
	}
	return &u, true
}

func GetUserHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := findUser(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UserUpdate carries the fields an admin may change. Nil means unchanged.
type UserUpdate struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Mobile     *string `json:"mobile"`
	Year       *string `json:"year"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
	IsVerified *bool   `json:"is_verified"`
}

// Changes validates u and returns the column updates it implies.
func (u UserUpdate) Changes() (map[string]any, error) {
	c := map[string]any{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, errors.New("Name cannot be empty")
		}
		c["name"] = name
	}
	if u.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if email == "" || is.EmailFormat.Validate(email) != nil {
			return nil, errors.New("Invalid email address")
		}
		c["email"] = email
	}
	if u.Mobile != nil {
		c["mobile"] = strings.TrimSpace(*u.Mobile)
	}
	if u.Year != nil {
		if *u.Year != "" && !slices.Contains(auth.Years, *u.Year) {
			return nil, errors.New("Invalid year")
		}
		c["year"] = *u.Year
	}
	if u.Department != nil {
		if *u.Department != "" && !slices.Contains(auth.Departments, *u.Department) {
			return nil, errors.New("Invalid department")
		}
		c["department"] = *u.Department
	}
	if u.Role != nil {
		if !slices.Contains(Roles, *u.Role) {
			return nil, errors.New("Invalid role")
		}
		c["role"] = *u.Role
	}
	if u.IsActive != nil {
		c["is_active"] = *u.IsActive
	}
	if u.IsVerified != nil {
		c["is_verified"] = *u.IsVerified
	}
	return c, nil
}

func UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	changes, err := body.Changes()
	if err != nil {
		message(w, http.StatusBadRequest, err.Error())
		return
	}
	if self, _ := utils.GetUserIDFromContext(r.Context()); self == id {
		if v, ok := changes["role"]; ok && v != "admin" {
			message(w, http.StatusBadRequest, "Cannot remove your own admin role")
			return
		}
		if v, ok := changes["is_active"]; ok && v == false {
			message(w, http.StatusBadRequest, "Cannot deactivate your own account")
			return
		}
	}

	u, ok := findUser(w, id)
	if !ok {
		return
	}
	if err := applyUserChanges(db.DB, u, changes); err != nil {
		log.Printf("[admin] update user %s: %v", id, err)
		message(w, http.StatusInternalServerError, "Error updating user")
		return
	}

	if u, ok = findUser(w, id); !ok {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// applyUserChanges writes changes in one transaction. Deactivated users
// lose their session along with the flag.
func applyUserChanges(conn *gorm.DB, u *auth.User, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	changes["updated_at"] = time.Now()
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Updates(changes).Error; err != nil {
			return err
		}
		if v, ok := changes["is_active"]; ok && v == false {
			if err := tx.Where("user_id = ?", u.UserID).Delete(&auth.Session{}).Error; err != nil {
				return fmt.Errorf("end sessions: %w", err)
			}
		}
		return nil
	})
}

func DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if self, _ := utils.GetUserIDFromContext(r.Context()); self == id {
		message(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	var deleted int64
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&auth.Session{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ?", id).Delete(&auth.User{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		message(w, http.StatusInternalServerError, "Error deleting user")
		return
	}
	if deleted == 0 {
		message(w, http.StatusNotFound, "User not found")
		return
	}
	message(w, http.StatusOK, "User deleted successfully")
}

type DashboardStats struct {
	TotalUsers    int64  `json:"totalUsers"`
	ActiveUsers   int64  `json:"activeUsers"`
	VerifiedUsers int64  `json:"verifiedUsers"`
	AdminUsers    int64  `json:"adminUsers"`
	Timestamp     string `json:"timestamp"`
}

func DashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	var row struct {
		TotalUsers    int64
		ActiveUsers   int64
		VerifiedUsers int64
		AdminUsers    int64
	}
	err := db.DB.WithContext(r.Context()).Model(&auth.User{}).Select(
		"COUNT(*) AS total_users, " +
			"COUNT(*) FILTER (WHERE is_active) AS active_users, " +
			"COUNT(*) FILTER (WHERE is_verified) AS verified_users, " +
			"COUNT(*) FILTER (WHERE role = 'admin') AS admin_users",
	).Scan(&row).Error
	if err != nil {
		log.Printf("[admin] dashboard stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Failed to fetch dashboard statistics",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": DashboardStats{
			TotalUsers:    row.TotalUsers,
			ActiveUsers:   row.ActiveUsers,
			VerifiedUsers: row.VerifiedUsers,
			AdminUsers:    row.AdminUsers,
			Timestamp:     time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		},
	})
}
