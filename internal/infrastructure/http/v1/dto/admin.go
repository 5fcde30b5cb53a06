package dto

// ListGapsQuery filters reconciliation gaps.
type ListGapsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending resolved failed"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
