package dto

// CreateClientRequest is the payload for registering a client.
type CreateClientRequest struct {
	FullName string  `json:"full_name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    string  `json:"phone" binding:"required"`
	Document *string `json:"document"`
	Notes    *string `json:"notes"`
}

// UpdateClientRequest edits client contact attributes.
type UpdateClientRequest struct {
	FullName string  `json:"full_name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    string  `json:"phone" binding:"required"`
	Document *string `json:"document"`
	Notes    *string `json:"notes"`
}

// ClientListRequest captures query parameters for listing clients.
type ClientListRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
