package model

// Participant competes in exactly one event on behalf of a district.
type Participant struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	District string `json:"district"`
	EventID  string `json:"eventId" validate:"required"`
}

// Score is one judge's assessment of one participant. At most one Score
// exists per (JudgeID, ParticipantID).
type Score struct {
	ID            string             `json:"id" validate:"required"`
	JudgeID       string             `json:"judgeId" validate:"required"`
	ParticipantID string             `json:"participantId" validate:"required"`
	EventID       string             `json:"eventId" validate:"required"`
	Entries       map[string]float64 `json:"criteriaScores"`
	Deduction     float64            `json:"deductions" validate:"gte=0"`
	Total         float64            `json:"totalScore" validate:"gte=0"`
	Critique      string             `json:"critique,omitempty"`
}

// Role of a user.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleEventAdmin Role = "EVENT_ADMIN"
	RoleJudge      Role = "JUDGE"
)

// User is a judge or an administrator profile.
type User struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name"`
	Role            Role   `json:"role" validate:"required,oneof=SUPER_ADMIN EVENT_ADMIN JUDGE"`
	AssignedEventID string `json:"assignedEventId,omitempty"`
}

// Setting is a key/value pair of global configuration stored with the records.
type Setting struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// SettingAllowAdminSignup controls whether new admins may self-register.
const SettingAllowAdminSignup = "allow_admin_signup"

// ChangeKind tells whether a score change created or replaced a record.
type ChangeKind string

const (
	ChangeInserted ChangeKind = "inserted"
	ChangeUpdated  ChangeKind = "updated"
)

// ScoreChange is a notification that a score was written.
type ScoreChange struct {
	ID    string     `json:"changeId" validate:"required"`
	Kind  ChangeKind `json:"changeKind" validate:"required,oneof=inserted updated"`
	Score Score      `json:"newRecord"`
}
