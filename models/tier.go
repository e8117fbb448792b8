package models

// TierRequirement is one row of the static level table.
type TierRequirement struct {
	Level                int   `json:"level"`
	TeamRevenueThreshold Money `json:"teamRevenueThreshold"`
	PayoutAmount         Money `json:"payoutAmount"`
}
