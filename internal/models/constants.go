package models

// UserRole константы ролей пользователей
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// ProjectStatus константы статусов проектов
const (
	ProjectStatusOpen       = "open"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

// BidStatus константы статусов ставок
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// ValidProjectStatuses список валидных статусов проектов
var ValidProjectStatuses = map[string]struct{}{
	ProjectStatusOpen:       {},
	ProjectStatusInProgress: {},
	ProjectStatusCompleted:  {},
	ProjectStatusCancelled:  {},
}

// ValidBidStatuses список валидных статусов ставок
var ValidBidStatuses = map[string]struct{}{
	BidStatusPending:  {},
	BidStatusAccepted: {},
	BidStatusRejected: {},
}

// ValidRoles список валидных ролей пользователей
var ValidRoles = map[string]struct{}{
	RoleClient:     {},
	RoleFreelancer: {},
	RoleAdmin:      {},
}
