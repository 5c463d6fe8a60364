// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package announce

import (
	"context"
	"strings"
	"time"

	"github.com/danielhkuo/pilrt/models"
)

// Announcement kinds
const (
	KindCall   = "call"
	KindRecall = "recall"
)

type Announcement struct {
	Kind   string         `json:"kind"`
	Voters []models.Voter `json:"voters"`
	Text   string         `json:"text"`
	At     time.Time      `json:"at"`
}

// Announcer speaks or forwards an announcement. Delivery is best-effort:
// callers log failures and carry on.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

// Nop discards announcements.
type Nop struct{}

func (Nop) Announce(context.Context, Announcement) error { return nil }

// New builds an announcement for voters called at the same instant.
func New(kind string, voters []models.Voter, at time.Time) Announcement {
	return Announcement{Kind: kind, Voters: voters, Text: Sentence(voters), At: at}
}

// Sentence builds one utterance naming every voter:
//
//	Panggilan untuk Bapak Budi, Ibu Siti, dan Rina. Silakan menuju bilik suara.
func Sentence(voters []models.Voter) string {
	if len(voters) == 0 {
		return ""
	}

	names := make([]string, len(voters))
	for i, v := range voters {
		names[i] = Addressed(v)
	}

	return "Panggilan untuk " + joinNames(names) + ". Silakan menuju bilik suara."
}

// Addressed prefixes the voter's name with an honorific when the gender
// is known.
func Addressed(v models.Voter) string {
	name := strings.TrimSpace(v.Name)
	switch strings.ToUpper(v.Gender) {
	case models.GenderMale:
		return "Bapak " + name
	case models.GenderFemale:
		return "Ibu " + name
	}
	return name
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " dan " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", dan " + names[len(names)-1]
}
