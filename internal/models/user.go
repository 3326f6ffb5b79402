package models

import (
	"time"
)

// NotificationPreferences lets a user opt out of e-mail notifications.
// Push and in-app events are always delivered.
type NotificationPreferences struct {
	Inquiry bool `bson:"inquiry" json:"inquiry"`
	Message bool `bson:"message" json:"message"`
	Match   bool `bson:"match" json:"match"`
}

// DefaultNotificationPreferences is applied to newly registered users.
func DefaultNotificationPreferences() *NotificationPreferences {
	return &NotificationPreferences{Inquiry: true, Message: false, Match: true}
}

// User is a marketplace account. Any user may both sell and buy.
type User struct {
	Base                    `bson:",inline"`
	Name                    string                   `bson:"name" json:"name"`
	Email                   string                   `bson:"email" json:"email"`
	Phone                   string                   `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash            string                   `bson:"password" json:"-"`
	IsAdmin                 bool                     `bson:"is_admin" json:"is_admin"`
	DeviceToken             string                   `bson:"device_token,omitempty" json:"-"`
	NotificationPreferences *NotificationPreferences `bson:"notification_preferences,omitempty" json:"notification_preferences,omitempty"`
	CreatedAt               time.Time                `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time                `bson:"updated_at" json:"updated_at"`
}

// WantsEmail reports whether the user accepts e-mail for the given event kind.
// Users without stored preferences get the defaults.
func (u *User) WantsEmail(kind string) bool {
	p := u.NotificationPreferences
	if p == nil {
		p = DefaultNotificationPreferences()
	}
	switch kind {
	case "inquiry":
		return p.Inquiry
	case "message":
		return p.Message
	case "match":
		return p.Match
	}
	return false
}
