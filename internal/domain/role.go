package domain

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)
