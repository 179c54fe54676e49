package domain

import (
	"strconv"
)

type Account struct {
	ID   int64
	Nick string
}

func (a Account) String() string {
	return a.Nick + " (" + strconv.FormatInt(a.ID, 10) + ")"
}

// MatchSummary is one played match as seen by a single account.
type MatchSummary struct {
	MatchID    int64        `json:"match_id"`
	StartTime  int64        `json:"start_time"`
	HeroID     int          `json:"hero_id"`
	Kills      int          `json:"kills"`
	Deaths     int          `json:"deaths"`
	Assists    int          `json:"assists"`
	PartySize  *int         `json:"party_size"`
	GameMode   int          `json:"game_mode"`
	RadiantWin bool         `json:"radiant_win"`
	PlayerSlot int          `json:"player_slot"`
	Version    DetailStatus `json:"version"`
}

// Slots above 127 belong to the dire side.
func (m MatchSummary) OnDire() bool {
	return m.PlayerSlot > 127
}

func (m MatchSummary) Won() bool {
	return m.RadiantWin != m.OnDire()
}

func (m MatchSummary) IsParty() bool {
	return m.PartySize != nil && *m.PartySize > 1
}

// AccountHistory is newest-first with unique match ids.
type AccountHistory []MatchSummary

func (h AccountHistory) Contains(matchID int64) bool {
	return h.IndexOf(matchID) >= 0
}

func (h AccountHistory) IndexOf(matchID int64) int {
	for i, m := range h {
		if m.MatchID == matchID {
			return i
		}
	}
	return -1
}

// Truncate keeps the newest max entries.
func (h AccountHistory) Truncate(max int) AccountHistory {
	if max < 0 || len(h) <= max {
		return h
	}
	return h[:max]
}

type LastMatchSnapshot struct {
	AccountID int64        `json:"account_id"`
	Nick      string       `json:"nick"`
	Match     MatchSummary `json:"match"`
	Won       bool         `json:"won"`
	MMRChange int          `json:"mmr_change"`
	IsNew     bool         `json:"is_new"`
}

type ParseOutcome int

const (
	ParseSubmitted ParseOutcome = iota
	ParseSkipped
)

func (o ParseOutcome) String() string {
	switch o {
	case ParseSubmitted:
		return "submitted"
	case ParseSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// EstimateMMRChange approximates the rating swing of a ranked match.
func EstimateMMRChange(won, party bool) int {
	change := 30
	if party {
		change = 20
	}
	if !won {
		return -change
	}
	return change
}
