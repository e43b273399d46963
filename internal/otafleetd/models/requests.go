package models

import "time"

// Request bodies for the /api surface. Validation of simple field
// rules happens through gin's binding tags; cross-field rules are
// checked in the handlers.

type CreateAppRequest struct {
	Name        string `json:"name" binding:"required"`
	AppID       string `json:"appId" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type UpdateAppRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Status      *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type SetCurrentVersionRequest struct {
	VersionID string `json:"versionId" binding:"required"`
}

// CreateVersionByURLRequest creates a version from an externally hosted
// artifact. Mutually exclusive with the multipart upload path.
type CreateVersionByURLRequest struct {
	Version        string     `json:"version" binding:"required"`
	Build          string     `json:"build" binding:"required"`
	Name           string     `json:"name" binding:"required"`
	Description    string     `json:"description"`
	RuntimeVersion string     `json:"runtimeVersion"`
	IsMandatory    bool       `json:"isMandatory"`
	// FileURL is either an absolute URL or a staged /uploads/ path.
	FileURL        string     `json:"fileUrl" binding:"required"`
	FileSize       int64      `json:"fileSize" binding:"required,gt=0"`
	Checksum       string     `json:"checksum" binding:"required"`
	PublishTime    string     `json:"publishTime" binding:"omitempty,oneof=now scheduled"`
	ScheduledAt    *time.Time `json:"scheduledAt"`
}

type PublishVersionRequest struct {
	Type           string     `json:"type" binding:"omitempty,oneof=full targeted"`
	TargetUserIDs  []string   `json:"targetUserIds"`
	TargetGroupIDs []string   `json:"targetGroupIds"`
	ScheduledAt    *time.Time `json:"scheduledAt"`
}

type RollbackVersionRequest struct {
	ToVersionID    string   `json:"toVersionId" binding:"required"`
	Type           string   `json:"type" binding:"omitempty,oneof=full targeted"`
	Reason         string   `json:"reason"`
	TargetUserIDs  []string `json:"targetUserIds"`
	TargetGroupIDs []string `json:"targetGroupIds"`
}

type UpdateDeviceVersionRequest struct {
	VersionID string `json:"versionId" binding:"required"`
	Force     bool   `json:"force"`
}

type BatchUpdateDevicesRequest struct {
	UserIDs   []string `json:"userIds" binding:"required,min=1"`
	VersionID string   `json:"versionId" binding:"required"`
}

type SetTargetVersionRequest struct {
	VersionID string `json:"versionId" binding:"required"`
}

type DeviceRollbackRequest struct {
	ToVersionID string `json:"toVersionId" binding:"required"`
	Reason      string `json:"reason"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	UserIDs     []string `json:"userIds"`
}

type UpdateGroupRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	UserIDs     *[]string `json:"userIds"`
}

type GroupUsersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type CreateUserRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     string   `json:"role" binding:"omitempty,oneof=admin app_manager viewer"`
	AppIDs   []string `json:"appIds"`
}

type UpdateUserRequest struct {
	Name   *string   `json:"name"`
	Role   *string   `json:"role" binding:"omitempty,oneof=admin app_manager viewer"`
	Status *string   `json:"status" binding:"omitempty,oneof=active inactive"`
	AppIDs *[]string `json:"appIds"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// Response payloads for auth and async operations.

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         *User  `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type TaskAck struct {
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type BatchTaskAck struct {
	TaskID        string `json:"taskId"`
	AffectedCount int    `json:"affectedCount"`
}

type GroupMembershipResult struct {
	AddedCount   int `json:"addedCount,omitempty"`
	RemovedCount int `json:"removedCount,omitempty"`
	UserCount    int `json:"userCount"`
}
