package models

// Claims is the payload embedded in every access and refresh token.
// It is immutable once issued: a role change takes effect only when
// the next pair is minted.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
