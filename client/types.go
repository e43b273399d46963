package client

import (
	"net/url"
	"strconv"
	"time"
)

// App is a managed application
type App struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	AppID          string    `json:"appId"`
	Icon           string    `json:"icon,omitempty"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	CurrentVersion string    `json:"currentVersion,omitempty"`
	UserCount      int       `json:"userCount"`
	UpdateCount    int       `json:"updateCount"`
	Versions       int       `json:"versions"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	OwnerID        string    `json:"ownerId"`
}

// Version is an update package
type Version struct {
	ID             string     `json:"id"`
	AppID          string     `json:"appId"`
	Version        string     `json:"version"`
	Build          string     `json:"build"`
	Name           string     `json:"name"`
	RuntimeVersion string     `json:"runtimeVersion,omitempty"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	FileURL        string     `json:"fileUrl"`
	FileSize       int64      `json:"fileSize"`
	Checksum       string     `json:"checksum"`
	IsMandatory    bool       `json:"isMandatory"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	RolledBackAt   *time.Time `json:"rolledBackAt,omitempty"`
	UserCount      int        `json:"userCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	TaskID         string     `json:"taskId,omitempty"`
}

// Device is an end-device registration
type Device struct {
	ID              string         `json:"id"`
	DeviceID        string         `json:"deviceId"`
	UserID          string         `json:"userId,omitempty"`
	CurrentVersion  string         `json:"currentVersion,omitempty"`
	TargetVersionID string         `json:"targetVersionId,omitempty"`
	LastUpdateAt    *time.Time     `json:"lastUpdateAt,omitempty"`
	DeviceInfo      map[string]any `json:"deviceInfo,omitempty"`
	Status          string         `json:"status"`
}

// DeviceStats summarizes the device population
type DeviceStats struct {
	Total    int `json:"total"`
	Online   int `json:"online"`
	Offline  int `json:"offline"`
	Versions int `json:"versions"`
}

// Group is a targeting set of devices
type Group struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	UserCount   int         `json:"userCount"`
	UserIDs     []string    `json:"userIds"`
	Users       []DeviceRef `json:"users,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// DeviceRef is a compact device reference carried in group payloads
type DeviceRef struct {
	ID       string `json:"id"`
	UserID   string `json:"userId,omitempty"`
	DeviceID string `json:"deviceId"`
}

// UpdateTask is an asynchronous rollout job
type UpdateTask struct {
	ID           string         `json:"id"`
	AppID        string         `json:"appId"`
	VersionID    string         `json:"versionId"`
	Type         string         `json:"type"`
	Status       string         `json:"status"`
	ScheduledAt  *time.Time     `json:"scheduledAt,omitempty"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	SuccessCount int            `json:"successCount"`
	FailureCount int            `json:"failureCount"`
	Progress     float64        `json:"progress"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Log is an audit trail entry
type Log struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	TargetID   string         `json:"targetId,omitempty"`
	TargetType string         `json:"targetType,omitempty"`
	Status     string         `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
	UserID     string         `json:"userId"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// User is a platform operator account
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	AppIDs      []string   `json:"appIds,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Stats is the adoption dashboard aggregate
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

// Upload is a staged artifact
type Upload struct {
	UploadID      string `json:"uploadId"`
	FileURL       string `json:"fileUrl"`
	FileSize      int64  `json:"fileSize"`
	Checksum      string `json:"checksum"`
	Status        string `json:"status"`
	UploadedBytes int64  `json:"uploadedBytes"`
	TotalBytes    int64  `json:"totalBytes"`
}

// TaskAck acknowledges an enqueued rollout
type TaskAck struct {
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BatchTaskAck acknowledges a batch rollout
type BatchTaskAck struct {
	TaskID        string `json:"taskId"`
	AffectedCount int    `json:"affectedCount"`
}

// GroupMembershipResult reports a membership change
type GroupMembershipResult struct {
	AddedCount   int `json:"addedCount"`
	RemovedCount int `json:"removedCount"`
	UserCount    int `json:"userCount"`
}

// Pagination describes a page of a list response
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a generic list response
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// DevicePage is a device list response with population stats
type DevicePage struct {
	Items      []Device    `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Stats      DeviceStats `json:"stats"`
}

// ListParams carries the shared list query parameters. Search terms
// shorter than two characters are dropped before the request is sent.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	SortBy    string
	SortOrder string
}

func (p ListParams) query() url.Values {
	values := url.Values{}
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if len(p.Search) >= 2 {
		values.Set("search", p.Search)
	}
	if p.Status != "" {
		values.Set("status", p.Status)
	}
	if p.SortBy != "" {
		values.Set("sortBy", p.SortBy)
	}
	if p.SortOrder != "" {
		values.Set("sortOrder", p.SortOrder)
	}
	return values
}
