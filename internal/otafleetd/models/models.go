package models

import "time"

// App statuses
const (
	AppStatusActive   = "active"
	AppStatusInactive = "inactive"
)

// Version statuses
const (
	VersionStatusDraft      = "draft"
	VersionStatusPublished  = "published"
	VersionStatusRolledBack = "rolled_back"
)

// Device statuses
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Update task types and statuses
const (
	TaskTypeFull     = "full"
	TaskTypeTargeted = "targeted"

	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Operator roles
const (
	RoleAdmin      = "admin"
	RoleAppManager = "app_manager"
	RoleViewer     = "viewer"
)

// Operator and log statuses
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"

	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

// Audit log categories
const (
	LogTypeVersion = "version"
	LogTypeDevice  = "device"
	LogTypeGroup   = "group"
	LogTypeApp     = "app"
	LogTypeUser    = "user"
	LogTypeAuth    = "auth"
	LogTypeTask    = "task"
)

// Upload statuses
const (
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

// UserRef is a compact reference to an operator account, embedded in
// responses that carry ownership or authorship information.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// App is a managed mobile application whose update packages are
// distributed through the system. AppID is the external bundle
// identifier (e.g. "com.example.app"); it is unique and immutable.
type App struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	AppID          string    `json:"appId"`
	Icon           *string   `json:"icon,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Status         string    `json:"status"`
	CurrentVersion *string   `json:"currentVersion,omitempty"`
	UserCount      int       `json:"userCount"`
	UpdateCount    int       `json:"updateCount"`
	Versions       int       `json:"versions"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	OwnerID        string    `json:"ownerId"`
	Owner          *UserRef  `json:"owner,omitempty"`
}

// Version is an immutable update artifact plus its metadata. The
// artifact triple (FileURL, FileSize, Checksum) never changes after
// creation; lifecycle is draft -> published -> rolled_back.
type Version struct {
	ID             string     `json:"id"`
	AppID          string     `json:"appId"`
	Version        string     `json:"version"`
	Build          string     `json:"build"`
	Name           string     `json:"name"`
	RuntimeVersion *string    `json:"runtimeVersion,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Status         string     `json:"status"`
	FileURL        string     `json:"fileUrl"`
	FileSize       int64      `json:"fileSize"`
	Checksum       string     `json:"checksum"`
	IsMandatory    bool       `json:"isMandatory"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	RolledBackAt   *time.Time `json:"rolledBackAt,omitempty"`
	PublishedBy    *string    `json:"publishedBy,omitempty"`
	Publisher      *UserRef   `json:"publisher,omitempty"`
	UserCount      int        `json:"userCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	TaskID         *string    `json:"taskId,omitempty"`
}

// VersionRef is a compact reference to a version.
type VersionRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Device is an end-device registration for an app install. DeviceID is
// unique per install. TargetVersionID, when set, pins the device to a
// specific version during targeted rollouts.
type Device struct {
	ID              string         `json:"id"`
	AppID           string         `json:"-"`
	DeviceID        string         `json:"deviceId"`
	UserID          *string        `json:"userId,omitempty"`
	CurrentVersion  *string        `json:"currentVersion,omitempty"`
	TargetVersionID *string        `json:"targetVersionId,omitempty"`
	LastUpdateAt    *time.Time     `json:"lastUpdateAt,omitempty"`
	DeviceInfo      map[string]any `json:"deviceInfo,omitempty"`
	Status          string         `json:"status"`
}

// DeviceRef is a compact reference to a device, used in group listings.
type DeviceRef struct {
	ID       string  `json:"id"`
	UserID   *string `json:"userId,omitempty"`
	DeviceID string  `json:"deviceId"`
}

// DeviceStats summarizes the device population of an app.
type DeviceStats struct {
	Total    int `json:"total"`
	Online   int `json:"online"`
	Offline  int `json:"offline"`
	Versions int `json:"versions"`
}

// Group is a named set of devices used as a targeting unit for bulk
// rollouts. UserCount always equals len(UserIDs); membership is stored
// relationally so the two cannot diverge.
type Group struct {
	ID          string      `json:"id"`
	AppID       string      `json:"-"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	UserCount   int         `json:"userCount"`
	UserIDs     []string    `json:"userIds"`
	Users       []DeviceRef `json:"users,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	CreatedBy   *string     `json:"createdBy,omitempty"`
}

// UpdateTask is an asynchronous rollout job. Publish, rollback and
// device update operations enqueue a task and return its ID
// immediately; the runner propagates the version and accumulates
// per-device success/failure counts.
type UpdateTask struct {
	ID           string         `json:"id"`
	AppID        string         `json:"appId"`
	VersionID    string         `json:"versionId"`
	Version      *VersionRef    `json:"version,omitempty"`
	Type         string         `json:"type"`
	Status       string         `json:"status"`
	ScheduledAt  *time.Time     `json:"scheduledAt,omitempty"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	SuccessCount int            `json:"successCount"`
	FailureCount int            `json:"failureCount"`
	Progress     float64        `json:"progress"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedBy    string         `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Log is an append-only audit record; one row per mutating operation.
type Log struct {
	ID         string         `json:"id"`
	AppID      string         `json:"-"`
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	TargetID   *string        `json:"targetId,omitempty"`
	TargetType *string        `json:"targetType,omitempty"`
	Status     string         `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
	UserID     string         `json:"userId"`
	User       *UserRef       `json:"user,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// User is a platform operator account. PasswordHash never leaves the
// server. AppIDs scopes app_manager accounts to the apps they may act
// on; admin is unscoped and viewer is read-only.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	AppIDs       []string   `json:"appIds,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// Stats is the adoption dashboard aggregate for an app.
type Stats struct {
	Summary             StatsSummary          `json:"summary"`
	VersionDistribution []VersionDistribution `json:"versionDistribution"`
	UpdateTimeline      []TimelinePoint       `json:"updateTimeline"`
	FailureReasons      []FailureReason       `json:"failureReasons"`
}

type StatsSummary struct {
	UpdateSuccessRate float64 `json:"updateSuccessRate"`
	SuccessCount      int     `json:"successCount"`
	FailureCount      int     `json:"failureCount"`
	ActiveVersions    int     `json:"activeVersions"`
	TotalUpdates      int     `json:"totalUpdates"`
}

type VersionDistribution struct {
	Version    string  `json:"version"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type FailureReason struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Upload is the record of an ingested artifact, addressable by its
// upload ID for progress queries.
type Upload struct {
	ID            string    `json:"uploadId"`
	FileURL       string    `json:"fileUrl"`
	FileSize      int64     `json:"fileSize"`
	Checksum      string    `json:"checksum"`
	Status        string    `json:"status"`
	UploadedBytes int64     `json:"uploadedBytes"`
	TotalBytes    int64     `json:"totalBytes"`
	CreatedAt     time.Time `json:"-"`
}
