package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every difficulty in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

type NotificationType string

const (
	NotificationFriendRequest NotificationType = "friend_request"
	NotificationFriendAccept  NotificationType = "friend_accept"
)

type Stage string

const (
	StageScreening  Stage = "screening"
	StageTechnical  Stage = "technical"
	StageBehavioral Stage = "behavioral"
	StageResult     Stage = "result"
)

// Profile is the public identity of a user. ID equals the identity
// provider's subject id.
type Profile struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	ProfilePicture *string   `gorm:"size:512" json:"profile_picture"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserStats holds per-user preferences and simulation counters.
// One row per user, created on first profile fetch.
type UserStats struct {
	ID                    string     `gorm:"primaryKey;size:36" json:"id"`
	UserID                string     `gorm:"uniqueIndex;size:64;not null" json:"user_id"`
	ResumeScore           *int       `json:"resume_score"`
	TargetRole            *string    `gorm:"size:128" json:"target_role"`
	PreferredDifficulty   Difficulty `gorm:"size:16;not null;default:medium" json:"preferred_difficulty"`
	TotalSimulations      int64      `gorm:"not null;default:0" json:"total_simulations"`
	SuccessfulSimulations int64      `gorm:"not null;default:0" json:"successful_simulations"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserStats) TableName() string { return "user_profiles" }

func (s *UserStats) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.PreferredDifficulty == "" {
		s.PreferredDifficulty = DifficultyMedium
	}
	return nil
}

// FriendRequest is a directed request between two users.
//
// ActivePair carries the sorted "<a>:<b>" key of the pair while the request
// is pending or accepted and is NULL once declined. The unique index on it
// allows at most one non-terminal request per unordered pair.
//
// Indexes:
//   - idx_friend_requests_recipient_status(recipient_id, status, created_at)
//     serves the "pending for me" listing.
//   - idx_friend_requests_requester_status(requester_id, status)
//     serves the friend list together with the recipient index.
type FriendRequest struct {
	ID          string              `gorm:"primaryKey;size:36" json:"id"`
	RequesterID string              `gorm:"size:64;not null;index:idx_friend_requests_requester_status,priority:1" json:"requester_id"`
	RecipientID string              `gorm:"size:64;not null;index:idx_friend_requests_recipient_status,priority:1" json:"recipient_id"`
	Status      FriendRequestStatus `gorm:"size:16;not null;index:idx_friend_requests_recipient_status,priority:2;index:idx_friend_requests_requester_status,priority:2" json:"status"`
	ActivePair  *string             `gorm:"size:130;uniqueIndex" json:"-"`
	CreatedAt   time.Time           `gorm:"autoCreateTime;index:idx_friend_requests_recipient_status,priority:3,sort:desc" json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at"`
}

func (r *FriendRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// PairKey returns the order-independent key of the pair {a, b}.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Notification is a per-user inbox entry; only IsRead ever changes.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"size:64;not null;index:idx_notifications_user_created,priority:1;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"size:512;not null" json:"message"`
	Data      *string          `gorm:"size:256" json:"data"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index:idx_notifications_user_created,priority:2,sort:desc" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// JobApplication is one simulated interview run against a job posting.
// It moves screening -> technical -> behavioral -> result and is terminal
// once Completed is set.
type JobApplication struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"size:64;not null;index:idx_job_applications_user_started,priority:1" json:"user_id"`
	Company    string     `gorm:"size:255;not null" json:"company"`
	Role       string     `gorm:"size:255;not null" json:"role"`
	Difficulty Difficulty `gorm:"size:16;not null" json:"difficulty"`
	JobSource  string     `gorm:"size:32;not null;default:preset" json:"job_source"`
	Location   *string    `gorm:"size:255" json:"location"`
	ApplyURL   *string    `gorm:"column:real_job_apply_url;size:1024" json:"real_job_apply_url"`
	Category   *string    `gorm:"column:real_job_category;size:128" json:"real_job_category"`

	CurrentStage Stage `gorm:"size:16;not null;default:screening" json:"current_stage"`

	ScreeningPassed   *bool   `json:"screening_passed"`
	ScreeningFeedback *string `gorm:"type:text" json:"screening_feedback"`

	TechnicalPassed  *bool          `json:"technical_passed"`
	TechnicalScore   *float64       `json:"technical_score"`
	TechnicalDetails datatypes.JSON `json:"technical_details"`

	BehavioralPassed   *bool    `json:"behavioral_passed"`
	BehavioralScore    *float64 `json:"behavioral_score"`
	BehavioralFeedback *string  `gorm:"type:text" json:"behavioral_feedback"`

	FinalHired         *bool    `json:"final_hired"`
	FinalWeightedScore *float64 `json:"final_weighted_score"`

	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	StartedAt   time.Time  `gorm:"autoCreateTime;index:idx_job_applications_user_started,priority:2,sort:desc" json:"started_at"`
}

func (j *JobApplication) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CurrentStage == "" {
		j.CurrentStage = StageScreening
	}
	return nil
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&Profile{}, &UserStats{}, &FriendRequest{}, &Notification{}, &JobApplication{}}
}
