package models

import "time"

// ConversationSession is one continuous conversation between a user and the assistant.
type ConversationSession struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Messages     []ChatMessage `json:"messages"`
	StartTime    time.Time     `json:"startTime"`
	LastActivity time.Time     `json:"lastActivity"`
	Category     string        `json:"category,omitempty"`
	Summary      string        `json:"summary,omitempty"`
}

// User is the authenticated identity returned on login.
type User struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Token     string       `json:"token"`
	LoginTime int64        `json:"loginTime"` // Unix millis
	Profile   *UserProfile `json:"profile,omitempty"`
}

// Experience levels accepted in a profile.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceExperienced  = "experienced"
)

// UserProfile is optional per-username context forwarded with outbound events.
type UserProfile struct {
	Age               *int     `json:"age,omitempty" validate:"omitempty,min=13,max=120"`
	RelationshipGoals []string `json:"relationshipGoals,omitempty"`
	ExperienceLevel   string   `json:"experienceLevel,omitempty" validate:"omitempty,oneof=beginner intermediate experienced"`
	Interests         []string `json:"interests,omitempty"`
	Location          string   `json:"location,omitempty"`
}

// Merge returns a copy of p with every field set in updates applied on top.
func (p UserProfile) Merge(updates UserProfile) UserProfile {
	if updates.Age != nil {
		p.Age = updates.Age
	}
	if updates.RelationshipGoals != nil {
		p.RelationshipGoals = updates.RelationshipGoals
	}
	if updates.ExperienceLevel != "" {
		p.ExperienceLevel = updates.ExperienceLevel
	}
	if updates.Interests != nil {
		p.Interests = updates.Interests
	}
	if updates.Location != "" {
		p.Location = updates.Location
	}
	return p
}
