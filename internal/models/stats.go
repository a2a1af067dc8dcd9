package models

import "time"

// RoomStats holds process-lifetime counters. They never decrease.
type RoomStats struct {
	TotalConnectionsEver int64     `json:"totalConnectionsEver"`
	MessagesExchanged    int64     `json:"messagesExchanged"`
	FilesUploaded        int64     `json:"filesUploaded"`
	ServerStartedAt      time.Time `json:"serverStartedAt"`
}

// ServerInfo is RoomStats plus the current sizes of the hub's stores.
type ServerInfo struct {
	RoomStats
	RegisteredUsers   int     `json:"registeredUsers"`
	OnlineUsers       int     `json:"onlineUsers"`
	ActiveConnections int     `json:"activeConnections"`
	StoredMessages    int     `json:"storedMessages"`
	TypingUsers       int     `json:"typingUsers"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}
