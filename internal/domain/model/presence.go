package model

import "time"

// PresenceEntry is one distinct authenticated principal, de-duplicated across
// multi-device connections.
type PresenceEntry struct {
	PrincipalID int64  `json:"id"`
	Username    string `json:"username"`
}

// HubStats is a point-in-time snapshot of the registry, served to admins.
type HubStats struct {
	TotalPrincipals  int            `json:"total_principals"`
	TotalConnections int            `json:"total_connections"`
	Rooms            map[string]int `json:"rooms,omitempty"`
	Uptime           time.Duration  `json:"uptime"`
}
