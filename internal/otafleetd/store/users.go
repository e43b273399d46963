package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// UserStore handles platform operator accounts
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `
	id, name, email, password_hash, role, status, app_ids, created_at, last_login_at
`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var appIDs *string
	var lastLogin sql.NullTime

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&appIDs, &u.CreatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}

	u.AppIDs = unmarshalStrings(appIDs)
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

// Create creates a user with an already hashed password. Email is
// unique across the platform.
func (s *UserStore) Create(req *models.CreateUserRequest, passwordHash string) (*models.User, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", req.Email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email %q: %w", req.Email, ErrConflict)
	}

	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}
	appIDs, err := marshalStrings(req.AppIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode app ids: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.Exec(`
		INSERT INTO users (id, name, email, password_hash, role, status, app_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, req.Name, req.Email, passwordHash, role, models.UserStatusActive, appIDs, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.GetByID(id)
}

// GetByID gets a user by ID
func (s *UserStore) GetByID(id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail gets a user by email
func (s *UserStore) GetByEmail(email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List lists users with pagination, an optional role filter, and
// name/email search.
func (s *UserStore) List(opts ListOptions, role string) ([]models.User, int, error) {
	opts.Normalize()

	where := "WHERE 1=1"
	args := []any{}
	if role != "" {
		where += " AND role = ?"
		args = append(args, role)
	}
	if opts.Status != "" {
		where += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "created_at", map[string]string{
		"name":        "name",
		"email":       "email",
		"createdAt":   "created_at",
		"lastLoginAt": "last_login_at",
	})

	args = append(args, opts.Limit, opts.Offset())
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT %s FROM users %s ORDER BY %s LIMIT ? OFFSET ?",
		userColumns, where, order,
	), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}

	return users, total, rows.Err()
}

// Update applies a partial update to a user
func (s *UserStore) Update(id string, req *models.UpdateUserRequest) (*models.User, error) {
	set := []string{}
	args := []any{}

	if req.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Role != nil {
		set = append(set, "role = ?")
		args = append(args, *req.Role)
	}
	if req.Status != nil {
		set = append(set, "status = ?")
		args = append(args, *req.Status)
	}
	if req.AppIDs != nil {
		appIDs, err := marshalStrings(*req.AppIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode app ids: %w", err)
		}
		set = append(set, "app_ids = ?")
		args = append(args, appIDs)
	}
	if len(set) == 0 {
		return s.GetByID(id)
	}

	query := "UPDATE users SET " + set[0]
	for _, clause := range set[1:] {
		query += ", " + clause
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return s.GetByID(id)
}

// UpdatePassword replaces a user's password hash and revokes all of
// their refresh tokens.
func (s *UserStore) UpdatePassword(id, passwordHash string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec("DELETE FROM refresh_tokens WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return tx.Commit()
}

// ToggleStatus flips a user between active and inactive and returns
// the new status.
func (s *UserStore) ToggleStatus(id string) (string, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return "", err
	}

	status := models.UserStatusActive
	if u.Status == models.UserStatusActive {
		status = models.UserStatusInactive
	}

	if _, err := s.db.Exec("UPDATE users SET status = ? WHERE id = ?", status, id); err != nil {
		return "", fmt.Errorf("failed to toggle status: %w", err)
	}
	if status == models.UserStatusInactive {
		if _, err := s.db.Exec("DELETE FROM refresh_tokens WHERE user_id = ?", id); err != nil {
			return "", fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}
	return status, nil
}

// TouchLastLogin records a successful login time
func (s *UserStore) TouchLastLogin(id string) error {
	_, err := s.db.Exec("UPDATE users SET last_login_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// Delete removes a user. Accounts that own apps cannot be deleted.
func (s *UserStore) Delete(id string) error {
	var owns bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM apps WHERE owner_id = ?)", id).Scan(&owns)
	if err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if owns {
		return fmt.Errorf("user %q owns apps: %w", id, ErrConflict)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec("DELETE FROM refresh_tokens WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return tx.Commit()
}

// Count returns the total number of accounts. Used at startup to seed
// the initial admin.
func (s *UserStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
