package model

import "time"

// ChatMessage is one entry of the bounded lobby chat log
type ChatMessage struct {
	Name    PlayerName `json:"name"`
	Message string     `json:"message"`
	SentAt  time.Time  `json:"sentAt"`
}
