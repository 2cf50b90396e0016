package models

import "time"

// SMTPSettings is the per-owner outbound email transport configuration.
type SMTPSettings struct {
	OwnerID     string    `json:"owner_id"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	FromEmail   string    `json:"from_email"`
	FromName    string    `json:"from_name"`
	ImplicitTLS bool      `json:"implicit_tls"`
	UpdatedAt   time.Time `json:"updated_at"`
}
