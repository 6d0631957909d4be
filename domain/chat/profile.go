package chat

import "time"

// UnknownSender is displayed when a sender is null or has no profile.
const UnknownSender = "Someone"

type Profile struct {
	UserID      UserID
	DisplayName string
	Bio         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Stats struct {
	Groups       int
	MessagesSent int
}
