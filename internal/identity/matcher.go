// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package identity maps meeting participants to roster users.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// MatchMethod names the rule that resolved a participant.
type MatchMethod string

const (
	MatchNone      MatchMethod = ""
	MatchEmail     MatchMethod = "email"
	MatchFullName  MatchMethod = "full_name"
	MatchFirstName MatchMethod = "first_name"
	MatchLastName  MatchMethod = "last_name"
)

// Matcher resolves participants against one course roster.
type Matcher struct {
	useEmail   bool
	byEmail    map[string]*models.RosterUser
	byFullName map[string][]*models.RosterUser
	byFirst    map[string][]*models.RosterUser
	byLast     map[string][]*models.RosterUser
}

// NewMatcher indexes the roster. Email matching is only attempted when useEmail is set.
func NewMatcher(users []models.RosterUser, useEmail bool) *Matcher {
	m := &Matcher{
		useEmail:   useEmail,
		byEmail:    make(map[string]*models.RosterUser),
		byFullName: make(map[string][]*models.RosterUser),
		byFirst:    make(map[string][]*models.RosterUser),
		byLast:     make(map[string][]*models.RosterUser),
	}
	for i := range users {
		user := &users[i]
		if email := strings.ToLower(strings.TrimSpace(user.Email)); email != "" {
			if _, exists := m.byEmail[email]; !exists {
				m.byEmail[email] = user
			}
		}
		first, last := Normalize(user.FirstName), Normalize(user.LastName)
		if first != "" && last != "" {
			m.byFullName[first+" "+last] = append(m.byFullName[first+" "+last], user)
		}
		if first != "" {
			m.byFirst[first] = append(m.byFirst[first], user)
		}
		if last != "" {
			m.byLast[last] = append(m.byLast[last], user)
		}
	}
	return m
}

// Match returns the roster user for a participant display name and email.
// Name rules only resolve when exactly one roster user matches.
func (m *Matcher) Match(name, email string) (*models.RosterUser, MatchMethod) {
	if m.useEmail {
		if user, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
			return user, MatchEmail
		}
	}

	normalized := Normalize(name)
	if normalized == "" {
		return nil, MatchNone
	}
	if user := unique(m.byFullName[normalized]); user != nil {
		return user, MatchFullName
	}
	if user := unique(m.byFirst[normalized]); user != nil {
		return user, MatchFirstName
	}
	if user := unique(m.byLast[normalized]); user != nil {
		return user, MatchLastName
	}
	return nil, MatchNone
}

func unique(users []*models.RosterUser) *models.RosterUser {
	if len(users) != 1 {
		return nil
	}
	return users[0]
}

// Normalize lower-cases s, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}
