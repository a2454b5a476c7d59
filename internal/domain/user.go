package domain

// User is a registered account. Members of a space need not have one: an
// invited email gets a derived user id until its owner registers.
type User struct {
	Entity
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}
