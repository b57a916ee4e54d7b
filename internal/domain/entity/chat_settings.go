package entity

import "time"

const (
	DefaultDisplayName = "SUL ESTATE"
	DefaultTitle       = "Real Estate Consultant"
	DefaultAvatarURL   = "https://images.unsplash.com/photo-1560250097-0b93528c311a?w=200&h=200&fit=crop"
)

type ChatSettings struct {
	AvatarURL   string    `json:"avatarUrl" firestore:"avatarUrl"`
	DisplayName string    `json:"displayName" firestore:"displayName"`
	Title       string    `json:"title" firestore:"title"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,serverTimestamp"`
}

// WithDefaults fills unset fields with the stock identity.
func (s ChatSettings) WithDefaults() ChatSettings {
	if s.AvatarURL == "" {
		s.AvatarURL = DefaultAvatarURL
	}
	if s.DisplayName == "" {
		s.DisplayName = DefaultDisplayName
	}
	if s.Title == "" {
		s.Title = DefaultTitle
	}
	return s
}
