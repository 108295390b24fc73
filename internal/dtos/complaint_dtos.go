package dtos

type CreateComplaintRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=1000"`
	Category    string `json:"category" validate:"required,oneof=Product Service Support Technical Billing"`
	Priority    string `json:"priority" validate:"required,oneof=Low Medium High"`
}

type UpdateComplaintStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending 'In Progress' Resolved"`
}
