package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/utils"
)

// SessionDuration is how long a login stays valid. Init sets it from config.
var SessionDuration = 6 * time.Hour

var (
	errMissingFields = errors.New("Name, email and password are required")
	errInvalidEmail  = errors.New("Invalid email address")
	errShortPassword = fmt.Errorf("Password must be at least %d characters", MinPasswordLength)
	errInvalidYear   = errors.New("Invalid year")
	errInvalidDept   = errors.New("Invalid department")
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateRegistration checks a sign-up request before it touches the DB.
func validateRegistration(u User) error {
	if u.Name == "" || u.Email == "" || u.Password == "" {
		return errMissingFields
	}
	if is.EmailFormat.Validate(u.Email) != nil {
		return errInvalidEmail
	}
	if len(u.Password) < MinPasswordLength {
		return errShortPassword
	}
	if u.Year != "" && !slices.Contains(Years, u.Year) {
		return errInvalidYear
	}
	if u.Department != "" && !slices.Contains(Departments, u.Department) {
		return errInvalidDept
	}
	return nil
}

func sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     "session_id",
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   secure,
	}
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var user User

	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}
	user.Name = strings.TrimSpace(user.Name)
	user.Email = normalizeEmail(user.Email)
	user.Mobile = strings.TrimSpace(user.Mobile)

	if err := validateRegistration(user); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Check if email is taken
	var existing User
	err := db.DB.First(&existing, "email = ?", user.Email).Error
	if err == nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}
	user.HashedPassword = string(hashed)
	user.UserID = utils.GenerateUUID()
	user.Role = "user"
	user.IsActive = true
	user.Password = ""

	if err := db.DB.Create(&user).Error; err != nil {
		log.Printf("[auth] register %s: %v", user.Email, err)
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"user_id": user.UserID,
		"name":    user.Name,
		"email":   user.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	var user User

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid Data", http.StatusBadRequest)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	if err := db.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	sessionID := utils.GenerateUUID()
	expires := time.Now().Add(SessionDuration)

	// One session per user: replace the old one if present.
	var existing Session
	err := db.DB.Where("user_id = ?", user.UserID).First(&existing).Error
	switch {
	case err == nil:
		err = db.DB.Model(&existing).Updates(Session{SessionID: sessionID, ExpiresAt: expires}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = db.DB.Create(&Session{SessionID: sessionID, UserID: user.UserID, ExpiresAt: expires}).Error
	}
	if err != nil {
		log.Printf("[auth] session for %s: %v", user.UserID, err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	db.DB.Model(&user).Updates(map[string]interface{}{
		"last_login":  now,
		"login_count": gorm.Expr("login_count + 1"),
	})

	http.SetCookie(w, sessionCookie(r, sessionID, int(SessionDuration.Seconds())))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"user_id": user.UserID,
		"name":    user.Name,
		"email":   user.Email,
		"role":    user.Role,
	})
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session_id")
	if err != nil {
		http.Error(w, "Couldn't find cookie", http.StatusUnauthorized)
		return
	}

	if err := db.DB.Where("session_id = ?", cookie.Value).Delete(&Session{}).Error; err != nil {
		http.Error(w, "Couldn't end session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, sessionCookie(r, "", -1))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Logout successful")
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	var user User

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Failed converting ID to string", http.StatusInternalServerError)
		return
	}

	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	var user User

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "Current and new password are required", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < MinPasswordLength {
		http.Error(w, errShortPassword.Error(), http.StatusBadRequest)
		return
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
		http.Error(w, "Invalid current password", http.StatusUnauthorized)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}

	if err := db.DB.Model(&user).Update("hashed_password", string(hashed)).Error; err != nil {
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Password updated")
}
