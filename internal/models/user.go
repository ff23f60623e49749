package models

import "time"

// User tel que stocké dans ecommerce_users. Password contient le hash.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Password  string    `json:"password,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public retourne une copie sans le mot de passe (utilisateur courant).
func (u User) Public() User {
	u.Password = ""
	return u
}

type Session struct {
	CurrentUser     *User  `json:"currentUser"`
	AuthToken       string `json:"authToken,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}
