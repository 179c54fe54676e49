package service

import (
	"sort"
	"sync"

	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"
)

type Rating int

const (
	RatingEven Rating = iota
	RatingDominant
	RatingRough
)

func (r Rating) String() string {
	switch r {
	case RatingDominant:
		return "dominant"
	case RatingRough:
		return "rough"
	default:
		return "even"
	}
}

type Participant struct {
	Account domain.Account
	Match   domain.MatchSummary
}

// MatchGroup collects every tracked account seen in one match during a run.
type MatchGroup struct {
	MatchID      int64
	StartTime    int64
	Participants []Participant
}

func (g MatchGroup) IsParty() bool {
	return len(g.Participants) >= 2
}

func (g MatchGroup) CombinedKDA() float64 {
	var kills, deaths, assists int
	for _, p := range g.Participants {
		kills += p.Match.Kills
		deaths += p.Match.Deaths
		assists += p.Match.Assists
	}
	return float64(kills+assists) / float64(max(1, deaths))
}

func (g MatchGroup) Rating() Rating {
	kda := g.CombinedKDA()
	switch {
	case kda >= constants.DominantKDA:
		return RatingDominant
	case kda <= constants.RoughKDA:
		return RatingRough
	default:
		return RatingEven
	}
}

// Grouper is rebuilt every run and safe for concurrent account syncs.
type Grouper struct {
	mu     sync.Mutex
	groups map[int64]*MatchGroup
}

func NewGrouper() *Grouper {
	return &Grouper{groups: make(map[int64]*MatchGroup)}
}

func (g *Grouper) Add(account domain.Account, matches []domain.MatchSummary) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, m := range matches {
		group, ok := g.groups[m.MatchID]
		if !ok {
			group = &MatchGroup{MatchID: m.MatchID, StartTime: m.StartTime}
			g.groups[m.MatchID] = group
		}
		if hasAccount(group.Participants, account.ID) {
			continue
		}
		group.Participants = append(group.Participants, Participant{Account: account, Match: m})
	}
}

// Groups returns copies ordered newest first.
func (g *Grouper) Groups() []MatchGroup {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]MatchGroup, 0, len(g.groups))
	for _, group := range g.groups {
		participants := make([]Participant, len(group.Participants))
		copy(participants, group.Participants)
		sort.Slice(participants, func(i, j int) bool {
			return participants[i].Account.ID < participants[j].Account.ID
		})
		out = append(out, MatchGroup{MatchID: group.MatchID, StartTime: group.StartTime, Participants: participants})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime > out[j].StartTime
		}
		return out[i].MatchID > out[j].MatchID
	})
	return out
}

func (g *Grouper) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.groups = make(map[int64]*MatchGroup)
}

func hasAccount(participants []Participant, accountID int64) bool {
	for _, p := range participants {
		if p.Account.ID == accountID {
			return true
		}
	}
	return false
}
