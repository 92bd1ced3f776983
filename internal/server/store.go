package server

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSubmission is returned when a start insert collides with
	// an existing open submission for the same (quest, user).
	ErrDuplicateSubmission = errors.New("open submission already exists")

	// ErrAlreadyFinished is returned when a finish compare-and-set finds
	// the submission already in a terminal state.
	ErrAlreadyFinished = errors.New("submission already finished")

	// ErrQuestReferenced is returned when deleting a quest that
	// submissions still reference.
	ErrQuestReferenced = errors.New("quest has submissions")
)

// Submission states. Terminal states are final: a submission leaves
// in_progress at most once.
const (
	StateInProgress = "in_progress"
	StateVerified   = "verified"
	StateFailed     = "failed"
)

// Quest is a geofenced cleanup task authored by a guide.
type Quest struct {
	ID          string  `json:"id"`
	GuideID     string  `json:"guide_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RadiusM     float64 `json:"radius_m"`
	Reward      int     `json:"reward"`
	Category    string  `json:"category,omitempty"`
	Difficulty  string  `json:"difficulty,omitempty"`
	Active      bool    `json:"active"`
	Completions int     `json:"completions"`
	CreatedAt   string  `json:"created_at"`
}

// Submission is one traveler's attempt at one quest.
type Submission struct {
	ID             string   `json:"id"`
	QuestID        string   `json:"quest_id"`
	UserID         string   `json:"user_id"`
	State          string   `json:"state"`
	BeforeImageRef string   `json:"before_image_ref"`
	AfterImageRef  string   `json:"after_image_ref,omitempty"`
	StartLat       float64  `json:"start_lat"`
	StartLon       float64  `json:"start_lon"`
	CompleteLat    *float64 `json:"complete_lat,omitempty"`
	CompleteLon    *float64 `json:"complete_lon,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	StartedAt      string   `json:"started_at"`
	CompletedAt    string   `json:"completed_at,omitempty"`
}

// SubmissionOutcome carries everything the finish compare-and-set
// persists in one transaction.
type SubmissionOutcome struct {
	State         string // verified or failed
	Confidence    float64
	Reason        string
	AfterImageRef string
	CompleteLat   float64
	CompleteLon   float64
	// Reward is credited to the traveler when State is verified.
	Reward int
}

// TravelerProfile is the traveler-facing account view.
type TravelerProfile struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Points          int    `json:"points"`
	CompletedQuests int    `json:"completed_quests"`
}

// LeaderboardEntry ranks travelers by points.
type LeaderboardEntry struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Points          int    `json:"points"`
	CompletedQuests int    `json:"completed_quests"`
}

// QuestUpdate is the set of quest fields a guide may edit.
type QuestUpdate struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	RadiusM     float64
	Reward      int
	Category    string
	Difficulty  string
}

type Store interface {
	// Travelers.
	RegisterTraveler(ctx context.Context, name string) (id, token string, err error)
	TravelerFromToken(ctx context.Context, token string) (travelerSession, error)
	TravelerProfile(ctx context.Context, id string) (TravelerProfile, error)
	TopTravelers(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	// Guides.
	GuideByEmail(ctx context.Context, email string) (id, passwordHash string, err error)
	CreateGuideSession(ctx context.Context, guideID string) (sessionID string, err error)
	DeleteGuideSession(ctx context.Context, sessionID string) error
	GuideFromSession(ctx context.Context, sessionID string) (guideSession, error)

	// Quests.
	CreateQuest(ctx context.Context, q Quest) (Quest, error)
	GetQuest(ctx context.Context, id string) (Quest, error)
	UpdateQuest(ctx context.Context, id, guideID string, upd QuestUpdate) (Quest, error)
	SetQuestActive(ctx context.Context, id, guideID string, active bool) error
	DeleteQuest(ctx context.Context, id, guideID string) error
	ListActiveQuests(ctx context.Context) ([]Quest, error)
	ListQuestsByGuide(ctx context.Context, guideID string) ([]Quest, error)

	// Submissions. StartSubmission must be a single atomic conditional
	// insert; FinishSubmission must be a single compare-and-set that
	// credits the reward in the same transaction.
	StartSubmission(ctx context.Context, sub Submission) (Submission, error)
	LatestSubmission(ctx context.Context, questID, userID string) (Submission, error)
	FinishSubmission(ctx context.Context, submissionID string, out SubmissionOutcome) error
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string) ([]Submission, error)
	ListSubmissionsByGuide(ctx context.Context, guideID, state string) ([]Submission, error)
}
