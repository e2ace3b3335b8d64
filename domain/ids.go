// Package domain contains core concepts of the party system.
// No runtime, network, or UI logic should be added here.
package domain

type UserID string

type ChannelID string

type MessageID string
