package dto

type ActivateRequest struct {
	Grant bool `json:"grant"`
}

type StatusRequest struct {
	Status string `json:"status"`
}
