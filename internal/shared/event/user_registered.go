package event

const UserRegisteredDestination string = "twofa.user.registered"

type UserRegisteredMessage struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}
