package domain

// TokenPayload is the identity carried by a signed access token.
type TokenPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
